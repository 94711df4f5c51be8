// Package body implements the body parser (C1): decoding a request body by
// media type into a typed value, exactly once, synchronously with dispatch.
//
// Grounded on xraph-go-utils/http's Bind/BindJSON/BindXML content-type
// switch (context.go) and the multipart helpers in binder.go, generalized
// from "bind into a caller-supplied struct" to "produce a self-describing
// Body value" so the context builder (C4) can store it before a handler's
// schema is known.
package body

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/igniter-go/igniter/errs"
)

// Kind identifies how a body was decoded.
type Kind int

const (
	KindEmpty Kind = iota
	KindJSON
	KindForm
	KindMultipart
	KindText
	KindBytes
	KindBlob
	KindStream
)

// FormFile is a single uploaded multipart file, header kept for metadata
// (filename, size, declared content type) without buffering contents twice.
type FormFile struct {
	Header  *multipart.FileHeader
	Open    func() (multipart.File, error)
}

// Blob is an opaque payload with its media type preserved (pdf/image/video).
type Blob struct {
	MediaType string
	Data      []byte
}

// Body is the typed result of parsing a request body.
type Body struct {
	Kind Kind

	JSON any // object/array/primitive for KindJSON

	Form map[string]string // application/x-www-form-urlencoded

	// Multipart holds both plain values and files, matching the data
	// model's "mapping of string -> (string | file)".
	MultipartValues map[string]string
	MultipartFiles  map[string][]FormFile

	Text string // KindText

	Bytes []byte // KindBytes (application/octet-stream)

	BlobValue Blob // KindBlob (pdf/image/video)

	Stream io.Reader // KindStream (application/stream or unrecognized raw stream)
}

// Parse decodes r's body according to its Content-Type, per spec §4.1.
// GET/HEAD requests are never read. A parse failure returns a
// *errs.Error with code BODY_PARSE_ERROR; the stream is read at most once
// regardless of outcome.
func Parse(r *http.Request) (Body, error) {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		return Body{Kind: KindEmpty}, nil
	}

	if r.Body == nil {
		return Body{Kind: KindEmpty}, nil
	}

	contentType := r.Header.Get("Content-Type")
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.TrimSpace(contentType)
	}

	switch {
	case mediaType == "" :
		return parseText(r)
	case mediaType == "application/json":
		return parseJSON(r)
	case mediaType == "application/x-www-form-urlencoded":
		return parseForm(r)
	case strings.HasPrefix(mediaType, "multipart/form-data"):
		return parseMultipart(r, params)
	case mediaType == "text/plain":
		return parseText(r)
	case mediaType == "application/octet-stream":
		return parseBytes(r)
	case mediaType == "application/pdf", strings.HasPrefix(mediaType, "image/"), strings.HasPrefix(mediaType, "video/"):
		return parseBlob(r, mediaType)
	case mediaType == "application/stream":
		return Body{Kind: KindStream, Stream: r.Body}, nil
	default:
		return parseText(r)
	}
}

func readAll(r *http.Request) ([]byte, error) {
	defer r.Body.Close()

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, errs.NewFrameworkError(errs.CodeBodyParse, "failed to read request body", err)
	}

	return data, nil
}

func parseJSON(r *http.Request) (Body, error) {
	data, err := readAll(r)
	if err != nil {
		return Body{}, err
	}

	if len(data) == 0 {
		return Body{Kind: KindJSON, JSON: map[string]any{}}, nil
	}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return Body{}, errs.NewFrameworkError(errs.CodeBodyParse, "invalid JSON body", err)
	}

	return Body{Kind: KindJSON, JSON: v}, nil
}

func parseForm(r *http.Request) (Body, error) {
	data, err := readAll(r)
	if err != nil {
		return Body{}, err
	}

	values, err := url.ParseQuery(string(data))
	if err != nil {
		return Body{}, errs.NewFrameworkError(errs.CodeBodyParse, "invalid form body", err)
	}

	flat := make(map[string]string, len(values))
	for k, v := range values {
		if len(v) > 0 {
			flat[k] = v[0]
		}
	}

	return Body{Kind: KindForm, Form: flat}, nil
}

// defaultMultipartMemory mirrors the common 32MB default used across the
// net/http ecosystem (echo, gin) for in-memory multipart parsing thresholds.
const defaultMultipartMemory = 32 << 20

func parseMultipart(r *http.Request, params map[string]string) (Body, error) {
	if err := r.ParseMultipartForm(defaultMultipartMemory); err != nil {
		return Body{}, errs.NewFrameworkError(errs.CodeBodyParse, "invalid multipart body", err)
	}

	values := make(map[string]string)
	for k, v := range r.MultipartForm.Value {
		if len(v) > 0 {
			values[k] = v[0]
		}
	}

	files := make(map[string][]FormFile)
	for field, headers := range r.MultipartForm.File {
		for _, h := range headers {
			header := h
			files[field] = append(files[field], FormFile{
				Header: header,
				Open:   func() (multipart.File, error) { return header.Open() },
			})
		}
	}

	return Body{Kind: KindMultipart, MultipartValues: values, MultipartFiles: files}, nil
}

func parseText(r *http.Request) (Body, error) {
	data, err := readAll(r)
	if err != nil {
		return Body{}, err
	}

	return Body{Kind: KindText, Text: string(data)}, nil
}

func parseBytes(r *http.Request) (Body, error) {
	data, err := readAll(r)
	if err != nil {
		return Body{}, err
	}

	return Body{Kind: KindBytes, Bytes: data}, nil
}

func parseBlob(r *http.Request, mediaType string) (Body, error) {
	data, err := readAll(r)
	if err != nil {
		return Body{}, err
	}

	return Body{Kind: KindBlob, BlobValue: Blob{MediaType: mediaType, Data: data}}, nil
}

// ErrAlreadyParsed marks a logic error: a body was read more than once.
var ErrAlreadyParsed = errors.New("body: already parsed")
