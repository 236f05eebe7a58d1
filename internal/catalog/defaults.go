package catalog

// DefaultMenu returns the built-in coffee-shop menu used to seed an empty
// index.
func DefaultMenu() []Entry {
	return []Entry{
		{ID: 1, Name: "아메리카노", Price: 4000, Popular: true, Temperature: TempHot},
		{ID: 2, Name: "아메리카노", Price: 4000, Popular: true, Temperature: TempIce},
		{ID: 3, Name: "카페라떼", Price: 4500, Popular: true, Temperature: TempHot},
		{ID: 4, Name: "카페라떼", Price: 4500, Popular: true, Temperature: TempIce},
		{ID: 5, Name: "바닐라 라떼", Price: 4700, Popular: true, Temperature: TempHot},
		{ID: 6, Name: "바닐라 라떼", Price: 4700, Popular: true, Temperature: TempIce},
		{ID: 7, Name: "카푸치노", Price: 5000, Popular: false, Temperature: TempHot},
		{ID: 8, Name: "카푸치노", Price: 5000, Popular: false, Temperature: TempIce},
		{ID: 9, Name: "카라멜 마끼아또", Price: 4700, Popular: false, Temperature: TempHot},
		{ID: 10, Name: "카라멜 마끼아또", Price: 4700, Popular: false, Temperature: TempIce},
		{ID: 11, Name: "카페모카", Price: 4700, Popular: false, Temperature: TempHot},
		{ID: 12, Name: "카페모카", Price: 4700, Popular: false, Temperature: TempIce},
		{ID: 13, Name: "초코 라떼", Price: 4000, Popular: false, Temperature: TempHot},
		{ID: 14, Name: "초코 라떼", Price: 4000, Popular: false, Temperature: TempIce},
		{ID: 15, Name: "녹차 라떼", Price: 4000, Popular: false, Temperature: TempHot},
		{ID: 16, Name: "녹차 라떼", Price: 4000, Popular: false, Temperature: TempIce},
		{ID: 17, Name: "밀크티", Price: 4000, Popular: false, Temperature: TempHot},
		{ID: 18, Name: "밀크티", Price: 4000, Popular: false, Temperature: TempIce},
		{ID: 19, Name: "레몬에이드", Price: 4500, Popular: false, Temperature: TempIce},
		{ID: 20, Name: "자몽에이드", Price: 4500, Popular: false, Temperature: TempIce},
		{ID: 21, Name: "오렌지 주스", Price: 5000, Popular: false, Temperature: TempIce},
		{ID: 22, Name: "딸기 주스", Price: 5000, Popular: false, Temperature: TempIce},
		{ID: 23, Name: "키위 주스", Price: 5000, Popular: false, Temperature: TempIce},
		{ID: 24, Name: "캐모마일 티", Price: 4000, Popular: false, Temperature: TempHot},
		{ID: 25, Name: "캐모마일 티", Price: 4000, Popular: false, Temperature: TempIce},
		{ID: 26, Name: "페퍼민트 티", Price: 4000, Popular: false, Temperature: TempHot},
		{ID: 27, Name: "페퍼민트 티", Price: 4000, Popular: false, Temperature: TempIce},
		{ID: 28, Name: "유자차", Price: 4500, Popular: false, Temperature: TempHot},
		{ID: 29, Name: "유자차", Price: 4500, Popular: false, Temperature: TempIce},
		{ID: 30, Name: "레몬티", Price: 4500, Popular: false, Temperature: TempHot},
		{ID: 31, Name: "레몬티", Price: 4500, Popular: false, Temperature: TempIce},
		{ID: 32, Name: "치즈케이크", Price: 5500, Popular: false, Temperature: TempNone},
		{ID: 33, Name: "티라미수", Price: 5500, Popular: false, Temperature: TempNone},
		{ID: 34, Name: "마카롱 (3개)", Price: 5000, Popular: false, Temperature: TempNone},
		{ID: 35, Name: "크루아상", Price: 4000, Popular: false, Temperature: TempNone},
		{ID: 36, Name: "초코 머핀", Price: 3500, Popular: false, Temperature: TempNone},
		{ID: 37, Name: "플레인 스콘", Price: 3500, Popular: false, Temperature: TempNone},
		{ID: 38, Name: "블루베리 요거트 스무디", Price: 5800, Popular: false, Temperature: TempIce},
		{ID: 39, Name: "망고 요거트 스무디", Price: 5800, Popular: false, Temperature: TempIce},
		{ID: 40, Name: "딸기 바나나 스무디", Price: 6000, Popular: false, Temperature: TempIce},
		{ID: 41, Name: "플레인 요거트 스무디", Price: 5500, Popular: false, Temperature: TempIce},
		{ID: 42, Name: "말차 프라페", Price: 5500, Popular: false, Temperature: TempIce},
		{ID: 43, Name: "초콜릿 프라페", Price: 5500, Popular: false, Temperature: TempIce},
		{ID: 44, Name: "흑임자 라떼", Price: 5000, Popular: false, Temperature: TempHot},
		{ID: 45, Name: "흑임자 라떼", Price: 5000, Popular: false, Temperature: TempIce},
		{ID: 46, Name: "고구마 라떼", Price: 5000, Popular: false, Temperature: TempHot},
		{ID: 47, Name: "고구마 라떼", Price: 5000, Popular: false, Temperature: TempIce},
		{ID: 48, Name: "곡물 라떼", Price: 5000, Popular: false, Temperature: TempHot},
		{ID: 49, Name: "곡물 라떼", Price: 5000, Popular: false, Temperature: TempIce},
		{ID: 50, Name: "자몽 허니 블랙티", Price: 4800, Popular: false, Temperature: TempHot},
		{ID: 51, Name: "자몽 허니 블랙티", Price: 4800, Popular: false, Temperature: TempIce},
		{ID: 52, Name: "레몬 허니 블랙티", Price: 4800, Popular: false, Temperature: TempHot},
		{ID: 53, Name: "레몬 허니 블랙티", Price: 4800, Popular: false, Temperature: TempIce},
		{ID: 54, Name: "블루 레몬 에이드", Price: 4800, Popular: false, Temperature: TempIce},
		{ID: 55, Name: "청포도 에이드", Price: 4800, Popular: false, Temperature: TempIce},
		{ID: 56, Name: "흑당 버블 밀크티", Price: 5500, Popular: false, Temperature: TempIce},
		{ID: 57, Name: "제주 말차 버블 라떼", Price: 5800, Popular: false, Temperature: TempIce},
	}
}

// DefaultPackagingOptions returns the built-in packaging phrases.
func DefaultPackagingOptions() []PackagingOption {
	return []PackagingOption{
		{ID: 1, Phrase: "포장 테이크아웃 가져가서", Type: PackagingTakeout},
		{ID: 2, Phrase: "매장 여기서 먹고", Type: PackagingDineIn},
	}
}
