package processor

import (
	"mime"
	"path/filepath"
	"strings"

	"doclens/internal/model"
)

// FileKind is the dispatcher's routing key. It is finer than the wire-level
// result type: xls and excel both report "excel".
type FileKind string

const (
	KindCSV     FileKind = "csv"
	KindExcel   FileKind = "excel"
	KindXLS     FileKind = "xls"
	KindPDF     FileKind = "pdf"
	KindText    FileKind = "text"
	KindDOCX    FileKind = "docx"
	KindDOC     FileKind = "doc"
	KindPPTX    FileKind = "pptx"
	KindPPT     FileKind = "ppt"
	KindUnknown FileKind = "unknown"
)

var mimeKinds = map[string]FileKind{
	"text/csv":                    KindCSV,
	"application/csv":             KindCSV,
	"text/comma-separated-values": KindCSV,
	"text/plain":                  KindText,
	"application/pdf":             KindPDF,
	"application/msword":          KindDOC,
	"application/vnd.ms-excel":    KindXLS,

	"application/vnd.ms-powerpoint":                                             KindPPT,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         KindExcel,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   KindDOCX,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": KindPPTX,
}

var extKinds = map[string]FileKind{
	".csv":  KindCSV,
	".xlsx": KindExcel,
	".xls":  KindXLS,
	".pdf":  KindPDF,
	".txt":  KindText,
	".docx": KindDOCX,
	".doc":  KindDOC,
	".pptx": KindPPTX,
	".ppt":  KindPPT,
}

// Classify routes a file by MIME type, falling back to its extension when the
// MIME type is missing, generic or unknown. Windows browsers report CSV files
// as application/vnd.ms-excel, so a .csv extension wins over that one type.
func Classify(mimeType, name string) FileKind {
	ext := strings.ToLower(filepath.Ext(name))
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if base, _, err := mime.ParseMediaType(mt); err == nil {
		mt = base
	}

	if k, ok := mimeKinds[mt]; ok {
		if k == KindXLS && ext == ".csv" {
			return KindCSV
		}
		return k
	}
	if k, ok := extKinds[ext]; ok {
		return k
	}
	return KindUnknown
}

// ResultType maps a file kind to the result discriminator it produces.
func (k FileKind) ResultType() model.ResultType {
	switch k {
	case KindCSV:
		return model.TypeCSV
	case KindExcel, KindXLS:
		return model.TypeExcel
	case KindPDF:
		return model.TypePDF
	case KindText:
		return model.TypeText
	case KindPPTX, KindPPT:
		return model.TypePresentation
	default:
		return model.TypeDocument
	}
}

// binary reports whether the kind is read as raw bytes rather than UTF-8 text.
func (k FileKind) binary() bool {
	switch k {
	case KindCSV, KindText:
		return false
	}
	return true
}
