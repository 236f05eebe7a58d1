// Package patterns loads the locale tables that drive order understanding
// (numeral words, units, separators, temperature and packaging vocabulary,
// confirmation words, similarity thresholds) and pre-compiles the regular
// expressions built from them. A loaded table set is an immutable Snapshot;
// Cache swaps snapshots atomically on explicit reload.
package patterns

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// NumeralWord maps a locale numeral word to its value.
type NumeralWord struct {
	Word  string
	Value int
}

// NumeralTable is an ordered numeral-word table. Order is significant: the
// quantity parser returns the first word found, so "한" must precede "하나".
type NumeralTable []NumeralWord

// UnmarshalJSON decodes a JSON object while keeping key order.
func (t *NumeralTable) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("korean_numbers: expected object, got %v", tok)
	}
	var out NumeralTable
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("korean_numbers: expected string key, got %v", keyTok)
		}
		var v int
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("korean_numbers[%q]: %w", key, err)
		}
		out = append(out, NumeralWord{Word: key, Value: v})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*t = out
	return nil
}

// MarshalJSON encodes the table as an object in table order.
func (t NumeralTable) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, nw := range t {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(nw.Word)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		fmt.Fprintf(&buf, ":%d", nw.Value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Thresholds groups every similarity cut-off used by the resolvers.
type Thresholds struct {
	Menu                float64 `json:"menu_similarity_threshold"`
	Packaging           float64 `json:"packaging_threshold"`
	Temperature         float64 `json:"temperature_threshold"`
	TemperatureHigh     float64 `json:"temperature_high_confidence"`
	PopularBonus        float64 `json:"popular_bonus"`
	FuzzyFloor          float64 `json:"rapidfuzz_threshold"` // 0-100 scale
	VectorWeight        float64 `json:"vector_weight"`
	MenuSearchLimit     int     `json:"menu_search_limit"`
	PackagingScoreFloor float64 `json:"vector_score_floor"`
}

// Config is the full set of locale tables.
type Config struct {
	Numerals           NumeralTable `json:"korean_numbers"`
	QuantityRegexes    []string     `json:"regex_patterns"`
	Units              []string     `json:"units"`
	Separators         []string     `json:"separators"`
	UnitRequired       bool         `json:"unit_required"`
	DefaultQuantity    int          `json:"default_quantity"`
	ColdExpressions    []string     `json:"cold_expressions"`
	HotExpressions     []string     `json:"hot_expressions"`
	DefaultTemperature string       `json:"default_temperature"`
	TakeoutKeywords    []string     `json:"takeout_keywords"`
	DineInKeywords     []string     `json:"dine_in_keywords"`
	PositiveWords      []string     `json:"positive_words"`
	NegativeWords      []string     `json:"negative_words"`
	Thresholds         Thresholds   `json:"thresholds"`
}

// Defaults returns the built-in tables used when pattern files are missing.
func Defaults() *Config {
	return &Config{
		Numerals: NumeralTable{
			{"한", 1}, {"하나", 1}, {"두", 2}, {"둘", 2}, {"세", 3}, {"셋", 3},
			{"네", 4}, {"넷", 4}, {"다섯", 5}, {"여섯", 6}, {"일곱", 7},
			{"여덟", 8}, {"아홉", 9}, {"열", 10},
		},
		QuantityRegexes:    []string{`(\d+)개`, `(\d+)잔`, `(\d+)개\s*주세요`, `(\d+)\s*개`, `(\d+)\s*잔`},
		Units:              []string{"개", "그릇", "잔", "인분", "마리", "판", "조각", "줄", "공기", "병"},
		Separators:         []string{",", "그리고", "하고", "랑", "와", "과"},
		UnitRequired:       false,
		DefaultQuantity:    1,
		ColdExpressions:    []string{"아이스", "차가운", "시원한", "ice", "iced", "아이스로", "차갑게"},
		HotExpressions:     []string{"따뜻한", "뜨거운", "핫", "hot", "따뜻하게", "뜨겁게"},
		DefaultTemperature: "hot",
		TakeoutKeywords:    []string{"포장", "테이크아웃", "to go", "take out", "가져가", "포장으로", "포장해서"},
		DineInKeywords:     []string{"매장", "여기서", "먹고", "마실", "먹고갈", "취식"},
		PositiveWords:      []string{"응", "네", "예", "맞아", "좋아", "그래", "ok", "오케이", "yes", "ㅇㅇ", "맞습니다"},
		NegativeWords:      []string{"아니", "아니야", "싫어", "안돼", "노", "no", "아니오", "ㄴㄴ", "취소"},
		Thresholds: Thresholds{
			Menu:                0.45,
			Packaging:           0.60,
			Temperature:         0.45,
			TemperatureHigh:     0.7,
			PopularBonus:        0.03,
			FuzzyFloor:          85,
			VectorWeight:        0.7,
			MenuSearchLimit:     5,
			PackagingScoreFloor: 0.2,
		},
	}
}

// Value returns the numeric value of a numeral word.
func (t NumeralTable) Value(word string) (int, bool) {
	for _, nw := range t {
		if nw.Word == word {
			return nw.Value, true
		}
	}
	return 0, false
}

// Validate rejects tables the parsers cannot work with.
func (c *Config) Validate() error {
	if len(c.Numerals) == 0 {
		return fmt.Errorf("numeral table is empty")
	}
	for _, nw := range c.Numerals {
		if nw.Word == "" || nw.Value <= 0 {
			return fmt.Errorf("invalid numeral %q=%d", nw.Word, nw.Value)
		}
	}
	if len(c.Units) == 0 {
		return fmt.Errorf("unit list is empty")
	}
	if len(c.Separators) == 0 {
		return fmt.Errorf("separator list is empty")
	}
	for _, list := range [][]string{c.Separators, c.Units} {
		for _, w := range list {
			if w == "" {
				return fmt.Errorf("empty separator or unit word")
			}
		}
	}
	switch c.DefaultTemperature {
	case "hot", "ice":
	default:
		return fmt.Errorf("default_temperature must be hot or ice, got %q", c.DefaultTemperature)
	}
	th := c.Thresholds
	for name, v := range map[string]float64{
		"menu": th.Menu, "packaging": th.Packaging, "temperature": th.Temperature,
		"temperature_high": th.TemperatureHigh, "vector_weight": th.VectorWeight,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("threshold %s out of [0,1]: %v", name, v)
		}
	}
	if th.FuzzyFloor < 0 || th.FuzzyFloor > 100 {
		return fmt.Errorf("fuzzy floor out of [0,100]: %v", th.FuzzyFloor)
	}
	return nil
}
