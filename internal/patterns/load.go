package patterns

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
)

// Pattern file names inside the patterns directory.
const (
	QuantityFile    = "quantity_patterns.json"
	TemperatureFile = "temperature_patterns.json"
	PackagingFile   = "packaging_keywords.json"
	MenuFile        = "menu_patterns.json"
)

// Files lists every pattern file Load consults.
var Files = []string{QuantityFile, TemperatureFile, PackagingFile, MenuFile}

// LoadReport records, per file, whether its contents or the defaults were used.
type LoadReport struct {
	Sources  map[string]string // file -> "file" | "default"
	Warnings []error
}

func (r *LoadReport) fallback(name string, err error) {
	r.Sources[name] = "default"
	if err != nil {
		r.Warnings = append(r.Warnings, fmt.Errorf("%s: %w", name, err))
	}
}

type quantityFile struct {
	RegexPatterns   []string     `json:"regex_patterns"`
	KoreanNumbers   NumeralTable `json:"korean_numbers"`
	Separators      []string     `json:"separators"`
	Units           []string     `json:"units"`
	UnitRequired    *bool        `json:"unit_required"`
	DefaultQuantity *int         `json:"default_quantity"`
}

type temperatureFile struct {
	ColdExpressions         []string `json:"cold_expressions"`
	HotExpressions          []string `json:"hot_expressions"`
	Threshold               *float64 `json:"threshold"`
	HighConfidenceThreshold *float64 `json:"high_confidence_threshold"`
	DefaultTemperature      string   `json:"default_temperature"`
}

type packagingFile struct {
	Takeout       []string `json:"takeout"`
	DineIn        []string `json:"dine_in"`
	Threshold     *float64 `json:"threshold"`
	PositiveWords []string `json:"positive_words"`
	NegativeWords []string `json:"negative_words"`
}

type menuFile struct {
	SimilarityThreshold *float64 `json:"similarity_threshold"`
	PopularBonus        *float64 `json:"popular_bonus"`
	RapidfuzzThreshold  *float64 `json:"rapidfuzz_threshold"`
	VectorWeight        *float64 `json:"vector_weight"`
	SearchLimit         *int     `json:"search_limit"`
	ScoreFloor          *float64 `json:"score_floor"`
}

// Load reads the pattern files from dir on top of Defaults. A missing or
// malformed file leaves that file's tables at their defaults and is noted in
// the report; Load itself never fails on file content.
func Load(dir string) (*Config, *LoadReport) {
	cfg := Defaults()
	report := &LoadReport{Sources: make(map[string]string, len(Files))}

	var q quantityFile
	if err := readJSON(dir, QuantityFile, &q); err != nil {
		report.fallback(QuantityFile, ignoreMissing(err))
	} else {
		for _, re := range q.RegexPatterns {
			if _, err := regexp.Compile(re); err != nil {
				report.Warnings = append(report.Warnings, fmt.Errorf("%s: regex %q: %w", QuantityFile, re, err))
				q.RegexPatterns = nil
				break
			}
		}
		setStrings(&cfg.QuantityRegexes, q.RegexPatterns)
		if len(q.KoreanNumbers) > 0 {
			cfg.Numerals = q.KoreanNumbers
		}
		setStrings(&cfg.Separators, q.Separators)
		setStrings(&cfg.Units, q.Units)
		if q.UnitRequired != nil {
			cfg.UnitRequired = *q.UnitRequired
		}
		if q.DefaultQuantity != nil && *q.DefaultQuantity > 0 {
			cfg.DefaultQuantity = *q.DefaultQuantity
		}
		report.Sources[QuantityFile] = "file"
	}

	var t temperatureFile
	if err := readJSON(dir, TemperatureFile, &t); err != nil {
		report.fallback(TemperatureFile, ignoreMissing(err))
	} else {
		setStrings(&cfg.ColdExpressions, t.ColdExpressions)
		setStrings(&cfg.HotExpressions, t.HotExpressions)
		setFloat(&cfg.Thresholds.Temperature, t.Threshold)
		setFloat(&cfg.Thresholds.TemperatureHigh, t.HighConfidenceThreshold)
		if t.DefaultTemperature != "" {
			cfg.DefaultTemperature = t.DefaultTemperature
		}
		report.Sources[TemperatureFile] = "file"
	}

	var p packagingFile
	if err := readJSON(dir, PackagingFile, &p); err != nil {
		report.fallback(PackagingFile, ignoreMissing(err))
	} else {
		setStrings(&cfg.TakeoutKeywords, p.Takeout)
		setStrings(&cfg.DineInKeywords, p.DineIn)
		setFloat(&cfg.Thresholds.Packaging, p.Threshold)
		setStrings(&cfg.PositiveWords, p.PositiveWords)
		setStrings(&cfg.NegativeWords, p.NegativeWords)
		report.Sources[PackagingFile] = "file"
	}

	var m menuFile
	if err := readJSON(dir, MenuFile, &m); err != nil {
		report.fallback(MenuFile, ignoreMissing(err))
	} else {
		setFloat(&cfg.Thresholds.Menu, m.SimilarityThreshold)
		setFloat(&cfg.Thresholds.PopularBonus, m.PopularBonus)
		setFloat(&cfg.Thresholds.FuzzyFloor, m.RapidfuzzThreshold)
		setFloat(&cfg.Thresholds.VectorWeight, m.VectorWeight)
		setFloat(&cfg.Thresholds.PackagingScoreFloor, m.ScoreFloor)
		if m.SearchLimit != nil && *m.SearchLimit > 0 {
			cfg.Thresholds.MenuSearchLimit = *m.SearchLimit
		}
		report.Sources[MenuFile] = "file"
	}

	// A file can be well-formed JSON and still carry unusable values.
	if err := cfg.Validate(); err != nil {
		report.Warnings = append(report.Warnings, fmt.Errorf("merged tables rejected, using defaults: %w", err))
		for _, f := range Files {
			report.Sources[f] = "default"
		}
		cfg = Defaults()
	}

	return cfg, report
}

func readJSON(dir, name string, v interface{}) error {
	if dir == "" {
		return fs.ErrNotExist
	}
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	return nil
}

func ignoreMissing(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func setStrings(dst *[]string, src []string) {
	if len(src) > 0 {
		*dst = src
	}
}

func setFloat(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}

// WriteDefaults writes the built-in tables as pattern files into dir.
func WriteDefaults(dir string) error {
	d := Defaults()
	unitRequired := d.UnitRequired
	defQty := d.DefaultQuantity
	temp, high := d.Thresholds.Temperature, d.Thresholds.TemperatureHigh
	pkg := d.Thresholds.Packaging
	menu, bonus, floor, weight := d.Thresholds.Menu, d.Thresholds.PopularBonus, d.Thresholds.FuzzyFloor, d.Thresholds.VectorWeight
	limit, scoreFloor := d.Thresholds.MenuSearchLimit, d.Thresholds.PackagingScoreFloor

	files := map[string]interface{}{
		QuantityFile: quantityFile{
			RegexPatterns: d.QuantityRegexes, KoreanNumbers: d.Numerals, Separators: d.Separators,
			Units: d.Units, UnitRequired: &unitRequired, DefaultQuantity: &defQty,
		},
		TemperatureFile: temperatureFile{
			ColdExpressions: d.ColdExpressions, HotExpressions: d.HotExpressions,
			Threshold: &temp, HighConfidenceThreshold: &high, DefaultTemperature: d.DefaultTemperature,
		},
		PackagingFile: packagingFile{
			Takeout: d.TakeoutKeywords, DineIn: d.DineInKeywords, Threshold: &pkg,
			PositiveWords: d.PositiveWords, NegativeWords: d.NegativeWords,
		},
		MenuFile: menuFile{
			SimilarityThreshold: &menu, PopularBonus: &bonus, RapidfuzzThreshold: &floor,
			VectorWeight: &weight, SearchLimit: &limit, ScoreFloor: &scoreFloor,
		},
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create patterns directory: %w", err)
	}
	for name, v := range files {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal %s: %w", name, err)
		}
		if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	return nil
}
