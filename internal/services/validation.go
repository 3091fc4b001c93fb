package services

import (
	"io"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"printshop/internal/models"
	"printshop/internal/storage"

	"github.com/go-playground/validator/v10"
)

// MaxUploadSize is the largest accepted design or mockup file.
const MaxUploadSize int64 = 10 << 20

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^\+?[78][\d\s\-()]{10,}$`)
	spaces       = regexp.MustCompile(`\s`)
	nonDigits    = regexp.MustCompile(`\D`)
)

// OrderSubmission carries the raw form fields of a new order.
type OrderSubmission struct {
	ProductType string
	Color       string
	Size        string
	FullName    string
	Email       string
	Phone       string
	City        string
	Address     string
	Notes       string
}

// Upload is an uploaded file as received from the transport.
type Upload struct {
	Filename    string
	Size        int64
	ContentType string
	Open        func() (io.ReadCloser, error)
}

type uploadRules struct {
	field      string
	mimeTypes  []string
	extensions []string
	typeError  string
}

var designRules = uploadRules{
	field:      FieldDesignFile,
	mimeTypes:  []string{"image/jpeg", "image/jpg", "image/png", "application/pdf", "image/svg+xml"},
	extensions: []string{".jpg", ".jpeg", ".png", ".pdf", ".svg"},
	typeError:  "supported formats: JPG, PNG, PDF, SVG",
}

var mockupRules = uploadRules{
	field:      FieldMockupImage,
	mimeTypes:  []string{"image/jpeg", "image/jpg", "image/png"},
	extensions: []string{".jpg", ".jpeg", ".png"},
	typeError:  "supported formats: JPG, PNG",
}

type fieldCheck struct {
	field   string
	value   string
	tag     string
	message string
}

func newValidator(catalog models.Catalog) *validator.Validate {
	v := validator.New()
	v.RegisterValidation("product_type", func(fl validator.FieldLevel) bool {
		_, ok := catalog.Product(fl.Field().String())
		return ok
	})
	v.RegisterValidation("garment_color", func(fl validator.FieldLevel) bool {
		_, ok := catalog.Color(fl.Field().String())
		return ok
	})
	v.RegisterValidation("garment_size", func(fl validator.FieldLevel) bool {
		return catalog.HasSize(fl.Field().String())
	})
	v.RegisterValidation("trimmed_min", func(fl validator.FieldLevel) bool {
		n, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		return utf8.RuneCountInString(strings.TrimSpace(fl.Field().String())) >= n
	})
	v.RegisterValidation("loose_email", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	v.RegisterValidation("ru_phone", func(fl validator.FieldLevel) bool {
		phone := fl.Field().String()
		// Country digit plus ten subscriber digits.
		return phonePattern.MatchString(spaces.ReplaceAllString(phone, "")) &&
			len(nonDigits.ReplaceAllString(phone, "")) == 11
	})
	return v
}

// validateSubmission checks fields in a fixed order and reports only the first failure.
func (s *OrderService) validateSubmission(sub OrderSubmission) error {
	checks := []fieldCheck{
		{FieldProductType, sub.ProductType, "required,product_type", "unknown product type"},
		{FieldColor, sub.Color, "required,garment_color", "unknown product color"},
		{FieldSize, sub.Size, "required,garment_size", "unknown product size"},
		{FieldFullName, sub.FullName, "required,trimmed_min=2", "name must be at least 2 characters"},
		{FieldEmail, sub.Email, "required,loose_email", "invalid email address"},
		{FieldPhone, sub.Phone, "required,ru_phone", "invalid phone number"},
		{FieldCity, sub.City, "required,trimmed_min=2", "city must be at least 2 characters"},
		{FieldAddress, sub.Address, "required,trimmed_min=10", "address must be at least 10 characters"},
	}
	for _, c := range checks {
		if err := s.validate.Var(c.value, c.tag); err != nil {
			return &ValidationError{Field: c.field, Message: c.message}
		}
	}
	return nil
}

// checkUpload enforces size, MIME type and extension. Both type checks must pass.
// It returns the effective MIME type.
func checkUpload(u *Upload, rules uploadRules) (string, error) {
	if u.Size > MaxUploadSize {
		return "", &FileConstraintError{Field: rules.field, Message: OversizeMessage, Oversize: true}
	}

	contentType := strings.ToLower(strings.TrimSpace(u.ContentType))
	if contentType == "" || contentType == "application/octet-stream" {
		sniffed, err := sniffUpload(u)
		if err != nil {
			return "", &FileConstraintError{Field: rules.field, Message: rules.typeError}
		}
		contentType = sniffed
	}
	if !slices.Contains(rules.mimeTypes, contentType) {
		return "", &FileConstraintError{Field: rules.field, Message: rules.typeError}
	}

	ext := strings.ToLower(filepath.Ext(u.Filename))
	if !slices.Contains(rules.extensions, ext) {
		return "", &FileConstraintError{Field: rules.field, Message: "file extension is not allowed"}
	}
	return contentType, nil
}

func sniffUpload(u *Upload) (string, error) {
	rc, err := u.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()
	return storage.SniffContentType(rc)
}

// SanitizeInput trims s and strips angle brackets.
func SanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.NewReplacer("<", "", ">", "").Replace(s)
}

// NormalizePhone rewrites a Russian number to +7XXXXXXXXXX. Numbers it does not
// recognize are returned unchanged.
func NormalizePhone(phone string) string {
	digits := nonDigits.ReplaceAllString(phone, "")
	switch {
	case strings.HasPrefix(digits, "8"):
		return "+7" + digits[1:]
	case strings.HasPrefix(digits, "7"):
		return "+" + digits
	case len(digits) == 10:
		return "+7" + digits
	}
	return phone
}

// CalculateTotal returns the catalog price plus printing and shipping.
func CalculateTotal(productPrice int64) int64 {
	return productPrice + models.PrintingCost + models.ShippingCost
}
