package constants

import (
	"path/filepath"
	"strings"
)

// FileFormat labels the detected format of an uploaded file.
type FileFormat string

const (
	FormatPDF      FileFormat = "PDF"
	FormatDOCX     FileFormat = "DOCX"
	FormatDOC      FileFormat = "DOC"
	FormatPPTX     FileFormat = "PPTX"
	FormatPPT      FileFormat = "PPT"
	FormatXLSX     FileFormat = "XLSX"
	FormatXLS      FileFormat = "XLS"
	FormatCSV      FileFormat = "CSV"
	FormatTSV      FileFormat = "TSV"
	FormatTXT      FileFormat = "TXT"
	FormatHTML     FileFormat = "HTML"
	FormatMarkdown FileFormat = "Markdown"
	FormatXML      FileFormat = "XML"
	FormatJSON     FileFormat = "JSON"
	FormatEML      FileFormat = "EML"
	FormatMSG      FileFormat = "MSG"
	FormatRTF      FileFormat = "RTF"
	FormatODT      FileFormat = "ODT"
	FormatEPUB     FileFormat = "EPUB"
	FormatImage    FileFormat = "Image"
	FormatZIP      FileFormat = "ZIP"
	FormatUnknown  FileFormat = "Unknown"
)

// extensionFormats maps normalized file extensions to formats. Extensions not
// listed here detect as FormatUnknown; unknown-format files are still sent to
// the extractor.
var extensionFormats = map[string]FileFormat{
	"pdf":      FormatPDF,
	"docx":     FormatDOCX,
	"doc":      FormatDOC,
	"pptx":     FormatPPTX,
	"ppt":      FormatPPT,
	"xlsx":     FormatXLSX,
	"xls":      FormatXLS,
	"csv":      FormatCSV,
	"tsv":      FormatTSV,
	"txt":      FormatTXT,
	"text":     FormatTXT,
	"html":     FormatHTML,
	"htm":      FormatHTML,
	"md":       FormatMarkdown,
	"markdown": FormatMarkdown,
	"xml":      FormatXML,
	"json":     FormatJSON,
	"eml":      FormatEML,
	"msg":      FormatMSG,
	"rtf":      FormatRTF,
	"odt":      FormatODT,
	"epub":     FormatEPUB,
	"png":      FormatImage,
	"jpg":      FormatImage,
	"jpeg":     FormatImage,
	"tiff":     FormatImage,
	"bmp":      FormatImage,
	"heic":     FormatImage,
	"zip":      FormatZIP,
}

// SkippedArchiveExtensions holds extensions never processed as archive members.
var SkippedArchiveExtensions = map[string]struct{}{
	"zip": {},
	"exe": {},
	"dll": {},
	"so":  {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// DetectFormat derives the file format from the filename extension,
// case-insensitively. Unrecognized extensions yield FormatUnknown.
func DetectFormat(fileName string) FileFormat {
	ext := NormalizeExt(filepath.Ext(fileName))
	if f, ok := extensionFormats[ext]; ok {
		return f
	}
	return FormatUnknown
}
