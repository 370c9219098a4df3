package sfdc

import "encoding/xml"

// CustomObject is the metadata definition for a custom-settings object.
// Only the fields the provisioner's two settings need are modeled.
type CustomObject struct {
	XMLName            xml.Name      `xml:"CustomObject"`
	FullName           string        `xml:"fullName"`
	CustomSettingsType string        `xml:"customSettingsType"`
	Description        string        `xml:"description"`
	EnableFeeds        bool          `xml:"enableFeeds"`
	Fields             []CustomField `xml:"fields"`
	Label              string        `xml:"label"`
	Visibility         string        `xml:"visibility"`
}

// CustomField is one field of a CustomObject definition
type CustomField struct {
	FullName       string `xml:"fullName"`
	DefaultValue   string `xml:"defaultValue,omitempty"`
	Description    string `xml:"description,omitempty"`
	ExternalID     bool   `xml:"externalId"`
	InlineHelpText string `xml:"inlineHelpText,omitempty"`
	Label          string `xml:"label"`
	Length         int    `xml:"length,omitempty"`
	TrackTrending  bool   `xml:"trackTrending"`
	Type           string `xml:"type"`
}
