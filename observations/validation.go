package observations

import (
	"regexp"
	"time"
)

// Product type identifiers.
const (
	TypeS2L2    = "S2_L2"
	TypeAWSS2L2 = "AWS_S2_L2"
)

// TypeValidator detects whether a product URL belongs to one product
// type and knows the type's directory conventions.
type TypeValidator interface {
	Name() string
	IsValid(url string) bool
	// RelativePath returns the type's tile sub-path portion of the URL,
	// empty when the product root is flat.
	RelativePath(url string) string
}

// S2L2Validator matches Sentinel-2 level-2 products stored under their
// granule name, e.g. .../S2A_MSIL2A_20170904T105021_.../
type S2L2Validator struct{}

var s2L2Matcher = regexp.MustCompile(`S2[AB]_(MSIL2A|USER_PRD_MSIL2A)_(\d{8}T\d{6})`)

func (v *S2L2Validator) Name() string {
	return TypeS2L2
}

func (v *S2L2Validator) IsValid(url string) bool {
	return s2L2Matcher.MatchString(url)
}

func (v *S2L2Validator) RelativePath(url string) string {
	return ""
}

// AWSS2L2Validator matches the AWS sentinel-s2 tile layout
// .../<utm_zone>/<latitude_band>/<grid_square>/<year>/<month>/<day>/<sequence>
type AWSS2L2Validator struct{}

var awsS2Matcher = regexp.MustCompile(`/\d{1,2}/[C-X]/[A-Z]{2}/\d{4}/\d{1,2}/\d{1,2}/\d{1,2}/?$`)

func (v *AWSS2L2Validator) Name() string {
	return TypeAWSS2L2
}

func (v *AWSS2L2Validator) IsValid(url string) bool {
	return awsS2Matcher.MatchString(url)
}

func (v *AWSS2L2Validator) RelativePath(url string) string {
	return awsS2Matcher.FindString(url)
}

var typeValidators = []TypeValidator{
	&AWSS2L2Validator{},
	&S2L2Validator{},
}

// GetValidType returns the product type detected from a URL, or the
// empty string when no validator accepts it.
func GetValidType(url string) string {
	for _, validator := range typeValidators {
		if validator.IsValid(url) {
			return validator.Name()
		}
	}
	return ""
}

// GetRelativePath returns the tile sub-path of a URL for the given
// product type.
func GetRelativePath(url string, dataType string) string {
	for _, validator := range typeValidators {
		if validator.Name() == dataType {
			return validator.RelativePath(url)
		}
	}
	return ""
}

var s2NameTime = regexp.MustCompile(`(\d{8}T\d{6})`)
var awsPathTime = regexp.MustCompile(`/(\d{4})/(\d{1,2})/(\d{1,2})/\d{1,2}/?$`)

// ExtractTimeFromURL derives the acquisition time encoded in a product
// URL, when the product type encodes one.
func ExtractTimeFromURL(url string, dataType string) (time.Time, bool) {
	switch dataType {
	case TypeS2L2:
		match := s2NameTime.FindString(url)
		if len(match) == 0 {
			return time.Time{}, false
		}
		t, err := time.ParseInLocation("20060102T150405", match, time.UTC)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	case TypeAWSS2L2:
		match := awsPathTime.FindStringSubmatch(url)
		if match == nil {
			return time.Time{}, false
		}
		t, err := time.ParseInLocation("2006-1-2", match[1]+"-"+match[2]+"-"+match[3], time.UTC)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}
	return time.Time{}, false
}
