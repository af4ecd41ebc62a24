package source

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/nvandessel/riskloop/internal/models"
	"github.com/nvandessel/riskloop/internal/sanitize"
)

// yamlDocument is the on-disk YAML category format:
//
//	categories:
//	  - name: Ransomware
//	    probability: 20%
//	    extreme_lower: 10000
//	    extreme_upper: 2000000
//	  - name: Lost laptop
//	    probability: 0.35
//	    lower90: 1000
//	    upper90: 5000
//
// When a category carries both pairs the 90% bounds win, as in CSV tables.
// An empty or null list is valid and yields no records.
type yamlDocument struct {
	Categories []yamlCategory `yaml:"categories" validate:"dive"`
}

type yamlCategory struct {
	Name         string          `yaml:"name" validate:"required"`
	Probability  yamlProbability `yaml:"probability"`
	Lower90      *float64        `yaml:"lower90" validate:"required_with=Upper90"`
	Upper90      *float64        `yaml:"upper90" validate:"required_with=Lower90"`
	ExtremeLower *float64        `yaml:"extreme_lower" validate:"required_without=Lower90,required_with=ExtremeUpper"`
	ExtremeUpper *float64        `yaml:"extreme_upper" validate:"required_with=ExtremeLower"`
	Count        int             `yaml:"count" validate:"gte=0"`
}

// yamlProbability accepts either a number or a percent-string.
type yamlProbability struct {
	value float64
	set   bool
}

func (p *yamlProbability) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: probability must be a scalar", node.Line)
	}
	v, err := ParseProbability(node.Value)
	if err != nil {
		return err
	}
	p.value, p.set = v, true
	return nil
}

var yamlValidator = newYAMLValidator()

func newYAMLValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ReadYAML decodes a YAML category document from r.
func ReadYAML(r io.Reader) ([]Record, error) {
	var doc yamlDocument
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		var ve *models.ValidationError
		if errors.As(err, &ve) {
			return nil, ve
		}
		if errors.Is(err, io.EOF) {
			return nil, readErr(errors.New("empty document"))
		}
		return nil, readErr(err)
	}

	if err := yamlValidator.Struct(doc); err != nil {
		return nil, yamlValidationError(err)
	}

	records := make([]Record, 0, len(doc.Categories))
	for i, yc := range doc.Categories {
		rowNum := i + 1
		if !yc.Probability.set {
			return nil, &models.ValidationError{Field: "probability", Value: `""`, Row: rowNum, Reason: "is required"}
		}
		rec := Record{Row: rowNum}
		lo, hi := yc.Lower90, yc.Upper90
		if lo == nil {
			lo, hi = yc.ExtremeLower, yc.ExtremeUpper
			rec.Extremes = true
		}
		rec.Category = models.Category{
			Name:        sanitize.CategoryName(yc.Name),
			Probability: yc.Probability.value,
			LossLower:   *lo,
			LossUpper:   *hi,
			Count:       yc.Count,
		}
		if err := rec.Category.Validate(); err != nil {
			return nil, withRow(err, rowNum)
		}
		records = append(records, rec)
	}
	return records, nil
}

// yamlValidationError maps the first validator failure onto a
// ValidationError carrying the 1-based list position.
func yamlValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("validating categories: %w", err)
	}
	fe := verrs[0]

	row := 0
	ns := fe.Namespace()
	if i := strings.Index(ns, "categories["); i >= 0 {
		rest := ns[i+len("categories["):]
		if j := strings.IndexByte(rest, ']'); j > 0 {
			if n, convErr := strconv.Atoi(rest[:j]); convErr == nil {
				row = n + 1
			}
		}
	}

	reason := "is invalid"
	switch fe.Tag() {
	case "required":
		reason = "is required"
	case "required_with", "required_without":
		reason = "needs both lower90/upper90 or both extreme_lower/extreme_upper"
	case "gte":
		reason = "must be >= " + fe.Param()
	}
	return &models.ValidationError{Field: fe.Field(), Value: fe.Value(), Row: row, Reason: reason}
}
