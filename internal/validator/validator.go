package validator

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"
)

const (
	tagName = "validate"

	ruleRequired = "required"
	ruleNested   = "nested"
	ruleIn       = "in"
	ruleMax      = "max"
	ruleMin      = "min"
	ruleLen      = "len"
	ruleMinLen   = "minlen"
	ruleMaxLen   = "maxlen"
	ruleRegexp   = "regexp"
)

var (
	// ErrInvalid matches any ValidationErrors with errors.Is.
	ErrInvalid = errors.New("validation failed")

	ErrRequired          = errors.New("value is required")
	ErrIncorrectLen      = errors.New("value has incorrect length")
	ErrNotMatchRegexp    = errors.New("does not match regexp")
	ErrNotFoundInList    = errors.New("not found in list")
	ErrIncorrectNumeric  = errors.New("incorrect numeric value")
	ErrIncorrectTag      = errors.New("incorrect tag")
	ErrIncorrectTagValue = errors.New("incorrect tag value")
	ErrIncorrectStruct   = errors.New("incorrect struct")
)

type ValidationError struct {
	Field string
	Err   error
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	sorted := make(ValidationErrors, len(v))
	copy(sorted, v)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Field == sorted[j].Field {
			return sorted[i].Err.Error() < sorted[j].Err.Error()
		}
		return sorted[i].Field < sorted[j].Field
	})
	parts := make([]string, 0, len(sorted))
	for _, e := range sorted {
		parts = append(parts, fmt.Sprintf("%s: %s", e.Field, e.Err))
	}
	return strings.Join(parts, "; ")
}

func (v ValidationErrors) Is(target error) bool {
	return target == ErrInvalid
}

type rule struct {
	name  string
	param string
}

var regexps sync.Map

// Validate checks exported fields of a struct (or pointer to struct) against their validate tags.
// Rules are separated with "|", e.g. `validate:"required|maxlen:64"`.
// A malformed tag is returned as a plain error, failed checks as ValidationErrors.
func Validate(v interface{}) error {
	errs, err := validateStruct(reflect.ValueOf(v), "")
	if err != nil {
		return err
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func validateStruct(rv reflect.Value, prefix string) (ValidationErrors, error) {
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil, ErrIncorrectStruct
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, ErrIncorrectStruct
	}

	var errs ValidationErrors
	t := rv.Type()
	for i := 0; i < rv.NumField(); i++ {
		sf := t.Field(i)
		if sf.PkgPath != "" {
			continue
		}
		rules, err := parseTag(sf.Tag.Get(tagName))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", sf.Name, err)
		}
		if len(rules) == 0 {
			continue
		}

		name := prefix + sf.Name
		field := rv.Field(i)
		if rules[0].name == ruleNested {
			if field.Kind() == reflect.Ptr && field.IsNil() {
				continue
			}
			nested, err := validateStruct(field, name+".")
			if err != nil {
				return nil, err
			}
			errs = append(errs, nested...)
			continue
		}

		fieldErrs, err := validateField(name, field, rules)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		errs = append(errs, fieldErrs...)
	}
	return errs, nil
}

func parseTag(tag string) ([]rule, error) {
	if tag == "" {
		return nil, nil
	}
	parts := strings.Split(tag, "|")
	rules := make([]rule, 0, len(parts))
	for _, part := range parts {
		nameParam := strings.SplitN(part, ":", 2)
		r := rule{name: nameParam[0]}
		if len(nameParam) == 2 {
			r.param = nameParam[1]
		}

		switch r.name {
		case ruleNested:
			// Other rules are ignored for nested structs.
			return []rule{r}, nil
		case ruleRequired:
		case ruleIn, ruleMax, ruleMin, ruleLen, ruleMinLen, ruleMaxLen, ruleRegexp:
			if len(nameParam) != 2 {
				return nil, ErrIncorrectTag
			}
		default:
			return nil, ErrIncorrectTag
		}
		rules = append(rules, r)
	}
	return rules, nil
}

func validateField(name string, field reflect.Value, rules []rule) (ValidationErrors, error) {
	var errs ValidationErrors
	if field.Kind() == reflect.Slice || field.Kind() == reflect.Array {
		for _, r := range rules {
			if r.name == ruleRequired {
				if field.Len() == 0 {
					errs = append(errs, ValidationError{Field: name, Err: ErrRequired})
				}
				continue
			}
			for i := 0; i < field.Len(); i++ {
				e, err := check(field.Index(i), r)
				if err != nil {
					return nil, err
				}
				if e != nil {
					errs = append(errs, ValidationError{Field: fmt.Sprintf("%s[%d]", name, i), Err: e})
				}
			}
		}
		return errs, nil
	}

	for _, r := range rules {
		e, err := check(field, r)
		if err != nil {
			return nil, err
		}
		if e != nil {
			errs = append(errs, ValidationError{Field: name, Err: e})
		}
	}
	return errs, nil
}

// check returns the failed-check error of one value and a non-nil second error for broken tags.
func check(v reflect.Value, r rule) (error, error) {
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			if r.name == ruleRequired {
				return ErrRequired, nil
			}
			return nil, nil
		}
		v = v.Elem()
	}

	switch r.name {
	case ruleRequired:
		if v.IsZero() {
			return ErrRequired, nil
		}
		return nil, nil
	case ruleIn:
		if !inList(v, strings.Split(r.param, ",")) {
			return ErrNotFoundInList, nil
		}
		return nil, nil
	}

	if v.Kind() == reflect.String {
		return checkString(v.String(), r)
	}
	return checkNumber(v, r)
}

func checkString(s string, r rule) (error, error) {
	switch r.name {
	case ruleLen, ruleMinLen, ruleMaxLen:
		limit, err := strconv.Atoi(r.param)
		if err != nil {
			return nil, ErrIncorrectTagValue
		}
		n := utf8.RuneCountInString(s)
		if (r.name == ruleLen && n != limit) ||
			(r.name == ruleMinLen && n < limit) ||
			(r.name == ruleMaxLen && n > limit) {
			return ErrIncorrectLen, nil
		}
	case ruleRegexp:
		re, err := compile(r.param)
		if err != nil {
			return nil, ErrIncorrectTagValue
		}
		if !re.MatchString(s) {
			return ErrNotMatchRegexp, nil
		}
	default:
		return nil, ErrIncorrectTag
	}
	return nil, nil
}

func checkNumber(v reflect.Value, r rule) (error, error) {
	if r.name != ruleMin && r.name != ruleMax {
		return nil, ErrIncorrectTag
	}
	limit, err := strconv.ParseFloat(r.param, 64)
	if err != nil {
		return nil, ErrIncorrectTagValue
	}
	n, ok := number(v)
	if !ok {
		return nil, ErrIncorrectTag
	}
	if (r.name == ruleMin && n < limit) || (r.name == ruleMax && n > limit) {
		return ErrIncorrectNumeric, nil
	}
	return nil, nil
}

func number(v reflect.Value) (float64, bool) {
	//exhaustive:ignore
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint()), true
	case reflect.Float32, reflect.Float64:
		return v.Float(), true
	default:
		return 0, false
	}
}

func inList(v reflect.Value, list []string) bool {
	var s string
	if v.Kind() == reflect.String {
		s = v.String()
	} else if n, ok := number(v); ok {
		s = strconv.FormatFloat(n, 'f', -1, 64)
	} else {
		return false
	}
	for _, item := range list {
		if item == s {
			return true
		}
		if f, err := strconv.ParseFloat(item, 64); err == nil && v.Kind() != reflect.String && strconv.FormatFloat(f, 'f', -1, 64) == s {
			return true
		}
	}
	return false
}

func compile(expr string) (*regexp.Regexp, error) {
	if re, ok := regexps.Load(expr); ok {
		return re.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	regexps.Store(expr, re)
	return re, nil
}
