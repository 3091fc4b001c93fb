package services

import "fmt"

// Field identifiers reported to the client.
const (
	FieldProductType = "productType"
	FieldColor       = "color"
	FieldSize        = "size"
	FieldFullName    = "fullName"
	FieldEmail       = "email"
	FieldPhone       = "phone"
	FieldCity        = "city"
	FieldAddress     = "address"
	FieldDesignFile  = "designFile"
	FieldMockupImage = "mockupImage"
	FieldStatus      = "status"
)

// OversizeMessage is the fixed message for uploads above MaxUploadSize.
const OversizeMessage = "file size must not exceed 10 MB"

// ValidationError is a client-correctable problem with one field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// FileConstraintError rejects an upload for its size or type.
type FileConstraintError struct {
	Field    string
	Message  string
	Oversize bool
}

func (e *FileConstraintError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// PersistenceError means the order could not be stored. Its text is never sent to clients.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to persist order: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
