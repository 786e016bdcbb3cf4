package mcpserver

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/tabula/internal/datasetservice"
	"github.com/starford/tabula/internal/parser"
	"github.com/starford/tabula/internal/storage"
)

const maxIngestSize = 50 << 20 // 50 MB

var (
	mimeToExt = map[string]string{
		"text/csv":        ".csv",
		"application/csv": ".csv",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": ".xlsx",
		"application/vnd.ms-excel": ".xls",
	}

	zipMagic = []byte("PK\x03\x04")
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

	safeFilenameRe = regexp.MustCompile(`[^a-zA-Z0-9._ -]`)
)

func (s *Server) ingestFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rawURL, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	filename := req.GetString("filename", "")

	var data []byte
	var detectedExt string

	if strings.HasPrefix(rawURL, "data:") {
		data, detectedExt, err = decodeDataURI(rawURL)
	} else {
		data, detectedExt, err = fetchHTTP(ctx, rawURL)
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if len(data) > maxIngestSize {
		return mcp.NewToolResultError(fmt.Sprintf("file too large: %d bytes (max %d)", len(data), maxIngestSize)), nil
	}

	if filename == "" {
		filename = filenameFromURL(rawURL, detectedExt)
	}
	filename = sanitizeFilename(filename)

	if !parser.Supported(filename) {
		return mcp.NewToolResultError(fmt.Sprintf("unsupported file extension: %s (allowed: csv, xlsx, xls)",
			filepath.Ext(filename))), nil
	}
	if err := validateMagicBytes(data, strings.ToLower(filepath.Ext(filename))); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	stored, err := s.files.Save(filename, bytes.NewReader(data))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to store file: %v", err)), nil
	}
	slog.Info("mcp file stored", slog.String("file", filename), slog.String("path", stored.Path))

	res, err := s.svc.ProcessFile(ctx, datasetservice.Upload{
		Filename: filename,
		Size:     stored.Size,
		Checksum: stored.Checksum,
		Source:   storage.File{P: s.files, Path: stored.Path},
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("ingest %s: %v", filename, err)), nil
	}
	return jsonResult(res)
}

// decodeDataURI parses a data:[<mediatype>][;base64],<data> URI.
func decodeDataURI(uri string) ([]byte, string, error) {
	rest := strings.TrimPrefix(uri, "data:")
	commaIdx := strings.Index(rest, ",")
	if commaIdx < 0 {
		return nil, "", fmt.Errorf("invalid data URI: missing comma separator")
	}

	meta := rest[:commaIdx]
	encoded := rest[commaIdx+1:]

	if !strings.Contains(meta, ";base64") {
		return nil, "", fmt.Errorf("only base64 data URIs are supported")
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, "", fmt.Errorf("invalid base64 data: %w", err)
		}
	}

	mime := strings.Split(strings.TrimSuffix(meta, ";base64"), ";")[0]
	return data, mimeToExt[mime], nil
}

// fetchHTTP downloads a file from an HTTP/HTTPS URL with security checks.
func fetchHTTP(ctx context.Context, rawURL string) ([]byte, string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, "", fmt.Errorf("unsupported scheme: %s (only http/https)", parsed.Scheme)
	}

	if err := checkBlockedHost(parsed.Hostname()); err != nil {
		return nil, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("invalid URL: %w", err)
	}
	resp, err := fetchClient().Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxIngestSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("read body failed: %w", err)
	}
	if len(data) > maxIngestSize {
		return nil, "", fmt.Errorf("file too large: exceeds %d bytes", maxIngestSize)
	}

	ct := resp.Header.Get("Content-Type")
	return data, mimeToExt[strings.TrimSpace(strings.Split(ct, ";")[0])], nil
}

// fetchClient returns a client whose dialer refuses blocked addresses.
// The check runs on the resolved IP of every connection, redirects included.
func fetchClient() *http.Client {
	dialer := &net.Dialer{
		Timeout: 10 * time.Second,
		Control: func(_, address string, _ syscall.RawConn) error {
			host, _, err := net.SplitHostPort(address)
			if err != nil {
				return fmt.Errorf("blocked host: %s", address)
			}
			return checkIP(net.ParseIP(host))
		},
	}
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			DialContext:         dialer.DialContext,
			TLSHandshakeTimeout: 10 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return fmt.Errorf("too many redirects (max 5)")
			}
			return checkBlockedHost(req.URL.Hostname())
		},
	}
}

// checkBlockedHost rejects metadata host names and blocked IP literals
// before any connection is made.
func checkBlockedHost(host string) error {
	if strings.EqualFold(strings.TrimSuffix(host, "."), "metadata.google.internal") {
		return fmt.Errorf("blocked host: %s", host)
	}
	if ip := net.ParseIP(host); ip != nil {
		return checkIP(ip)
	}
	return nil
}

// metadataIP is the AWS/GCP/Azure instance metadata endpoint.
var metadataIP = net.IPv4(169, 254, 169, 254)

// checkIP rejects loopback, unspecified and link-local addresses.
func checkIP(ip net.IP) error {
	switch {
	case ip == nil:
		return fmt.Errorf("blocked host: unparsable address")
	case ip.Equal(metadataIP):
		return fmt.Errorf("blocked host: cloud metadata address %s", ip)
	case ip.IsLoopback():
		return fmt.Errorf("blocked host: loopback address %s", ip)
	case ip.IsUnspecified():
		return fmt.Errorf("blocked host: unspecified address %s", ip)
	case ip.IsLinkLocalUnicast(), ip.IsLinkLocalMulticast():
		return fmt.Errorf("blocked host: link-local address %s", ip)
	}
	return nil
}

// filenameFromURL takes the last URL path segment, or a random name with
// the detected extension.
func filenameFromURL(rawURL string, fallbackExt string) string {
	if !strings.HasPrefix(rawURL, "data:") {
		if parsed, err := url.Parse(rawURL); err == nil {
			base := path.Base(parsed.Path)
			if base != "" && base != "." && base != "/" && strings.Contains(base, ".") {
				return base
			}
		}
	}
	ext := fallbackExt
	if ext == "" {
		ext = ".csv"
	}
	return uuid.New().String() + ext
}

// sanitizeFilename strips path separators and unsafe characters. Spaces
// survive since they end up in the dataset name.
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	name = strings.TrimSpace(safeFilenameRe.ReplaceAllString(name, "_"))
	if name == "" || name == "." || name == ".." {
		name = uuid.New().String()
	}
	return name
}

// validateMagicBytes verifies file content matches the declared extension.
func validateMagicBytes(data []byte, ext string) error {
	switch ext {
	case ".xlsx":
		if !bytes.HasPrefix(data, zipMagic) {
			return fmt.Errorf("content does not match extension %s (not a zip archive)", ext)
		}
	case ".xls":
		if !bytes.HasPrefix(data, oleMagic) {
			return fmt.Errorf("content does not match extension %s (not an OLE2 document)", ext)
		}
	case ".csv":
		if detected := http.DetectContentType(data); !strings.HasPrefix(detected, "text/") {
			return fmt.Errorf("content does not match extension %s (detected: %s)", ext, detected)
		}
	}
	return nil
}
