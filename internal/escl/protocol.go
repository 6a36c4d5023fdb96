package escl

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"
)

// eSCL resource paths and media types
const (
	ScanJobsPath            = "/eSCL/ScanJobs"
	ScannerStatusPath       = "/eSCL/ScannerStatus"
	ScannerCapabilitiesPath = "/eSCL/ScannerCapabilities"
	NextDocumentPath        = "/NextDocument"

	// Namespace is the eSCL XML namespace
	Namespace = "http://schemas.hp.com/imaging/escl/2011/05/03"

	ContentTypeXML = "application/xml"

	InputSourcePlaten = "Platen"
	FormatJPEG        = "image/jpeg"
)

// ScanSettings is the body of a job submission.
type ScanSettings struct {
	InputSource    string
	DocumentFormat string
}

// DefaultSettings scans the platen to JPEG.
func DefaultSettings() ScanSettings {
	return ScanSettings{
		InputSource:    InputSourcePlaten,
		DocumentFormat: FormatJPEG,
	}
}

// Body renders the ScanJob request document. Devices are picky about the
// namespace prefix, so the document is written by hand rather than through
// encoding/xml, which would emit a default namespace instead.
func (s ScanSettings) Body() []byte {
	var b bytes.Buffer
	b.WriteString(`<scan:ScanJob xmlns:scan="` + Namespace + `">`)
	b.WriteString(`<scan:InputSource>`)
	_ = xml.EscapeText(&b, []byte(s.InputSource))
	b.WriteString(`</scan:InputSource>`)
	b.WriteString(`<scan:DocumentFormat>`)
	_ = xml.EscapeText(&b, []byte(s.DocumentFormat))
	b.WriteString(`</scan:DocumentFormat>`)
	b.WriteString(`</scan:ScanJob>`)
	return b.Bytes()
}

// Job states reported in ScannerStatus
const (
	JobStatePending    = "Pending"
	JobStateProcessing = "Processing"
	JobStateCompleted  = "Completed"
	JobStateAborted    = "Aborted"
	JobStateCanceled   = "Canceled"
)

// ScannerStatus is the document served at /eSCL/ScannerStatus.
// Elements are matched by local name so both scan: and pwg: prefixes decode.
type ScannerStatus struct {
	XMLName xml.Name  `xml:"ScannerStatus"`
	Version string    `xml:"Version"`
	State   string    `xml:"State"`
	Jobs    []JobInfo `xml:"Jobs>JobInfo"`
}

// JobInfo describes one job in the scanner status.
type JobInfo struct {
	JobURI           string   `xml:"JobUri"`
	JobUUID          string   `xml:"JobUuid"`
	Age              int      `xml:"Age"`
	ImagesCompleted  int      `xml:"ImagesCompleted"`
	ImagesToTransfer int      `xml:"ImagesToTransfer"`
	JobState         string   `xml:"JobState"`
	JobStateReasons  []string `xml:"JobStateReasons>JobStateReason"`
}

// Ready reports whether the job has a document to fetch.
func (j JobInfo) Ready() bool {
	return j.JobState == JobStateCompleted || j.ImagesToTransfer > 0
}

// Failed reports whether the device gave up on the job.
func (j JobInfo) Failed() bool {
	return j.JobState == JobStateAborted || j.JobState == JobStateCanceled
}

// Job finds the entry for the job at location, matching on URL path.
func (s *ScannerStatus) Job(location string) (JobInfo, bool) {
	want := jobPath(location)
	for _, info := range s.Jobs {
		if jobPath(info.JobURI) == want {
			return info, true
		}
	}
	return JobInfo{}, false
}

// jobPath reduces a job URL or URI to its path without a trailing slash.
func jobPath(location string) string {
	if u, err := url.Parse(location); err == nil && u.Path != "" {
		location = u.Path
	}
	return strings.TrimSuffix(location, "/")
}

// ParseScannerStatus decodes a ScannerStatus document.
func ParseScannerStatus(data []byte) (*ScannerStatus, error) {
	var status ScannerStatus
	if err := xml.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("failed to parse scanner status: %w", err)
	}
	return &status, nil
}

// Capabilities is the subset of /eSCL/ScannerCapabilities used to confirm
// that a device actually scans.
type Capabilities struct {
	XMLName      xml.Name  `xml:"ScannerCapabilities"`
	Version      string    `xml:"Version"`
	MakeAndModel string    `xml:"MakeAndModel"`
	SerialNumber string    `xml:"SerialNumber"`
	UUID         string    `xml:"UUID"`
	Platen       *struct{} `xml:"Platen"`
	Adf          *struct{} `xml:"Adf"`
}

// HasPlaten reports whether the device advertises a flatbed.
func (c *Capabilities) HasPlaten() bool {
	return c.Platen != nil
}

// ParseCapabilities decodes a ScannerCapabilities document.
func ParseCapabilities(data []byte) (*Capabilities, error) {
	var caps Capabilities
	if err := xml.Unmarshal(data, &caps); err != nil {
		return nil, fmt.Errorf("failed to parse scanner capabilities: %w", err)
	}
	return &caps, nil
}
