package mimetypes

import (
	"fmt"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

type MIME string

const (
	Unknown     MIME = "unknown"
	OctetStream MIME = "application/octet-stream"

	ImageJPEG MIME = "image/jpeg"
	ImagePNG  MIME = "image/png"
	ImageGIF  MIME = "image/gif"
	ImageWEBP MIME = "image/webp"

	ApplicationPDF MIME = "application/pdf"
	TextPlain      MIME = "text/plain"
	TextCSV        MIME = "text/csv"

	MSWord        MIME = "application/msword"
	WordOpenXML   MIME = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MSExcel       MIME = "application/vnd.ms-excel"
	ExcelOpenXML  MIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MSPowerPoint  MIME = "application/vnd.ms-powerpoint"
	PowerPointXML MIME = "application/vnd.openxmlformats-officedocument.presentationml.presentation"

	ApplicationZIP MIME = "application/zip"

	AudioMPEG MIME = "audio/mpeg"
	AudioWAV  MIME = "audio/wav"
	VideoMP4  MIME = "video/mp4"
	VideoWEBM MIME = "video/webm"
)

var allowed = map[MIME]struct{}{
	ImageJPEG: {}, ImagePNG: {}, ImageGIF: {}, ImageWEBP: {},
	ApplicationPDF: {}, TextPlain: {}, TextCSV: {},
	MSWord: {}, WordOpenXML: {}, MSExcel: {}, ExcelOpenXML: {}, MSPowerPoint: {}, PowerPointXML: {},
	ApplicationZIP: {},
	AudioMPEG: {}, AudioWAV: {},
	VideoMP4: {}, VideoWEBM: {},
}

// aliases maps names some detectors or browsers report to the canonical allow-list entry.
var aliases = map[string]MIME{
	"audio/x-wav":                  AudioWAV,
	"audio/wave":                   AudioWAV,
	"audio/mp3":                    AudioMPEG,
	"image/jpg":                    ImageJPEG,
	"application/x-zip-compressed": ApplicationZIP,
}

// Normalize strips parameters and lowercases a media type.
func Normalize(raw string) MIME {
	if strings.TrimSpace(raw) == "" {
		return Unknown
	}
	mt, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return Unknown
	}
	mt = strings.ToLower(mt)
	if alias, ok := aliases[mt]; ok {
		return alias
	}
	return MIME(mt)
}

func IsAllowed(m MIME) bool {
	_, ok := allowed[m]
	return ok
}

// Resolve picks the effective type of an upload: the declared one, unless it is
// missing or generic, in which case the leading bytes are sniffed.
func Resolve(declared string, head []byte) MIME {
	m := Normalize(declared)
	if m != Unknown && m != OctetStream {
		return m
	}
	return Normalize(mimetype.Detect(head).String())
}

// Check resolves and validates the type against the allow-list.
func Check(declared string, head []byte) (MIME, error) {
	m := Resolve(declared, head)
	if !IsAllowed(m) {
		return m, fmt.Errorf("mime type %q is not allowed", m)
	}
	return m, nil
}

// Extension returns a file extension for the type, including the dot.
func Extension(m MIME) string {
	if mt := mimetype.Lookup(string(m)); mt != nil {
		return mt.Extension()
	}
	return ""
}

type FileType string

const (
	FileImage      FileType = "image"
	FileVideo      FileType = "video"
	FileAudio      FileType = "audio"
	FilePDF        FileType = "pdf"
	FileText       FileType = "text"
	FileWord       FileType = "word"
	FileExcel      FileType = "excel"
	FilePowerPoint FileType = "powerpoint"
	FileArchive    FileType = "archive"
	FileDocument   FileType = "document"
	FileOther      FileType = "file"
)

// Classify buckets a media type for client rendering.
func Classify(m MIME) FileType {
	s := string(m)
	switch {
	case strings.HasPrefix(s, "image/"):
		return FileImage
	case strings.HasPrefix(s, "video/"):
		return FileVideo
	case strings.HasPrefix(s, "audio/"):
		return FileAudio
	case m == ApplicationPDF:
		return FilePDF
	case strings.HasPrefix(s, "text/"):
		return FileText
	case strings.HasPrefix(s, "application/"):
		switch {
		case strings.Contains(s, "word"):
			return FileWord
		case strings.Contains(s, "excel"), strings.Contains(s, "sheet"):
			return FileExcel
		case strings.Contains(s, "powerpoint"), strings.Contains(s, "presentation"):
			return FilePowerPoint
		case strings.Contains(s, "zip"), strings.Contains(s, "compressed"):
			return FileArchive
		default:
			return FileDocument
		}
	default:
		return FileOther
	}
}

// Previewable reports whether a long-lived preview URL may be issued for the type.
func Previewable(m MIME) bool {
	return strings.HasPrefix(string(m), "image/") || m == ApplicationPDF
}

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB"}

// HumanSize formats a byte count with one decimal, e.g. "1.5 MB".
func HumanSize(n int64) string {
	if n <= 0 {
		return "0 B"
	}
	size := float64(n)
	for _, unit := range sizeUnits {
		if size < 1024 {
			return fmt.Sprintf("%.1f %s", size, unit)
		}
		size /= 1024
	}
	return fmt.Sprintf("%.1f PB", size)
}
