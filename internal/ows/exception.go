package ows

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// Exception codes defined by OWS Common 1.0.
const (
	OperationNotSupported    = "OperationNotSupported"
	MissingParameterValue    = "MissingParameterValue"
	InvalidParameterValue    = "InvalidParameterValue"
	VersionNegotiationFailed = "VersionNegotiationFailed"
	InvalidUpdateSequence    = "InvalidUpdateSequence"
	NoApplicableCode         = "NoApplicableCode"
)

const ExceptionReportVersion = "1.0.0"

type ExceptionReport struct {
	XMLName    xml.Name    `xml:"http://www.opengis.net/ows ExceptionReport"`
	Version    string      `xml:"version,attr"`
	Language   string      `xml:"http://www.w3.org/XML/1998/namespace lang,attr,omitempty"`
	Exceptions []Exception `xml:"http://www.opengis.net/ows Exception"`
}

type Exception struct {
	Code    string   `xml:"exceptionCode,attr"`
	Locator string   `xml:"locator,attr,omitempty"`
	Texts   []string `xml:"http://www.opengis.net/ows ExceptionText"`
}

func NewException(code, locator, format string, args ...interface{}) *Exception {
	return &Exception{
		Code:    code,
		Locator: locator,
		Texts:   []string{fmt.Sprintf(format, args...)},
	}
}

func (e *Exception) Error() string {
	msg := e.Code
	if e.Locator != "" {
		msg += " (" + e.Locator + ")"
	}
	if len(e.Texts) > 0 {
		msg += ": " + strings.Join(e.Texts, "; ")
	}
	return msg
}

// WriteExceptionReport writes a report holding the given exceptions.
func WriteExceptionReport(w io.Writer, exceptions ...*Exception) error {
	report := ExceptionReport{Version: ExceptionReportVersion}
	for _, exception := range exceptions {
		report.Exceptions = append(report.Exceptions, *exception)
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}

	encoder := xml.NewEncoder(w)
	encoder.Indent("", "  ")
	if err := encoder.Encode(report); err != nil {
		return err
	}
	return encoder.Flush()
}
