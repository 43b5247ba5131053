// internal/server/types.go
package server

import (
	"encoding/json"
	"html/template"
	"time"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type setupRequest struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// updateRecordNumberRequest accepts the value at the top level or nested under "values",
// as a string or a number.
type updateRecordNumberRequest struct {
	RecordNumber json.RawMessage `json:"recordNumber"`
	Values       struct {
		RecordNumber json.RawMessage `json:"recordNumber"`
	} `json:"values"`
}

type BaseTemplateData struct {
	CSRFToken string
}

type LoginTemplateData struct {
	BaseTemplateData
	Title  string
	Layout template.HTML
}

// authLayoutData is handed to the AuthLayout component and everything composed with it.
type authLayoutData struct {
	Title string
}

type AdminPageData struct {
	BaseTemplateData
	Title    string
	Active   string
	Username string
}

type SettingsIndexData struct {
	AdminPageData
	Pages []SettingsPage
}

type LoginInfoPageData struct {
	AdminPageData
	RecordNumber string
	UpdatedAt    time.Time
	CanEdit      bool
}
