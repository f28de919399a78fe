package validation

import (
	"regexp"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Validation rule patterns
var (
	// Course code: 2-4 letter subject, optional space, 3-4 digit number with an optional suffix (NSC 170C1).
	CourseCodePattern = `^[A-Z]{2,4} ?\d{3,4}[A-Z]?\d?$`

	// Grade token: letter grades with +/- and short institution tokens (P, NC, WF).
	GradeTokenPattern = `^[A-Z]{1,3}[+-]?$`
)

// CompiledPatterns caches compiled regex patterns for better performance
var CompiledPatterns = struct {
	CourseCode *regexp.Regexp
	GradeToken *regexp.Regexp
}{
	CourseCode: regexp.MustCompile(CourseCodePattern),
	GradeToken: regexp.MustCompile(GradeTokenPattern),
}

// Tags registered by Register.
const (
	TagCourseCode = "coursecode"
	TagGradeToken = "gradetoken"
)

// Register adds the transcript rules to v. Values are compared case-insensitively.
func Register(v *validator.Validate) error {
	if err := v.RegisterValidation(TagCourseCode, matchUpper(CompiledPatterns.CourseCode)); err != nil {
		return err
	}
	return v.RegisterValidation(TagGradeToken, matchUpper(CompiledPatterns.GradeToken))
}

// RegisterWithGin registers the rules on gin's default binding validator so
// `binding:"coursecode"` tags work in ShouldBindJSON.
func RegisterWithGin() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	return Register(v)
}

// New returns a validator with the transcript rules registered.
func New() *validator.Validate {
	v := validator.New()
	if err := Register(v); err != nil {
		panic(err)
	}
	return v
}

func matchUpper(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(strings.ToUpper(strings.TrimSpace(fl.Field().String())))
	}
}
