package models

import (
	"path/filepath"
	"strings"
)

// FileKind is the closed set of document formats the portal distinguishes.
type FileKind int

const (
	FileKindOther FileKind = iota
	FileKindPDF
	FileKindPPT
	FileKindPPTX
)

// ViewerRoute says where a document is opened.
type ViewerRoute string

const (
	RouteFlipbook     ViewerRoute = "flipbook"
	RouteOfficeViewer ViewerRoute = "office_viewer"
)

// FileKindInfo is the presentation attached to a kind.
type FileKindInfo struct {
	Label      string      `json:"label"`
	Icon       string      `json:"icon"`
	Color      string      `json:"color"`
	Background string      `json:"background"`
	Route      ViewerRoute `json:"route"`
}

var fileKindTable = map[FileKind]FileKindInfo{
	FileKindPDF:   {Label: "PDF", Icon: "📄", Color: "text-red-600", Background: "bg-red-50", Route: RouteFlipbook},
	FileKindPPT:   {Label: "PPT", Icon: "📊", Color: "text-orange-600", Background: "bg-orange-50", Route: RouteOfficeViewer},
	FileKindPPTX:  {Label: "PPTX", Icon: "📊", Color: "text-orange-600", Background: "bg-orange-50", Route: RouteOfficeViewer},
	FileKindOther: {Label: "FILE", Icon: "📁", Color: "text-gray-600", Background: "bg-gray-100", Route: RouteOfficeViewer},
}

// ParseFileKind maps a lower- or mixed-case extension to its kind.
func ParseFileKind(ext string) FileKind {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), ".")) {
	case "pdf":
		return FileKindPDF
	case "ppt":
		return FileKindPPT
	case "pptx":
		return FileKindPPTX
	default:
		return FileKindOther
	}
}

// FileTypeFromName returns the lower-case extension after the last dot, or "" when there is none.
func FileTypeFromName(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

// Info returns the presentation entry for k.
func (k FileKind) Info() FileKindInfo {
	if info, ok := fileKindTable[k]; ok {
		return info
	}
	return fileKindTable[FileKindOther]
}

func (k FileKind) String() string {
	return k.Info().Label
}
