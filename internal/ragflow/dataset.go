package ragflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ParseStatus is the coarse parsing state of a dataset document.
type ParseStatus string

const (
	StatusParsed   ParseStatus = "Parsed"
	StatusParsing  ParseStatus = "Parsing"
	StatusUnparsed ParseStatus = "Unparsed"
)

// Document is one entry in a RAGFlow dataset.
type Document struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Location   string `json:"location"`
	Size       int64  `json:"size"`
	Run        string `json:"run"`
	ChunkCount int    `json:"chunk_count"`
	CreateTime int64  `json:"create_time"`
	UpdateTime int64  `json:"update_time"`
}

// Status maps the backend's run field to a coarse state. A document
// with chunks counts as parsed regardless of its run value.
func (d Document) Status() ParseStatus {
	run := strings.ToUpper(d.Run)
	if run == "FINISHED" || run == "DONE" || d.ChunkCount > 0 {
		return StatusParsed
	}
	if run == "RUNNING" || run == "PARSING" || run == "PROCESSING" {
		return StatusParsing
	}
	return StatusUnparsed
}

// DisplayName returns the document name, falling back to its location.
func (d Document) DisplayName() string {
	if d.Name != "" {
		return d.Name
	}
	if d.Location != "" {
		return d.Location
	}
	return "Untitled"
}

// DatasetClient manages documents in one RAGFlow dataset.
type DatasetClient struct {
	apiBase   string
	datasetID string
	apiKey    string
	http      *http.Client
}

// NewDatasetClient creates a client for the given dataset.
func NewDatasetClient(apiBase, datasetID, apiKey string, httpClient *http.Client) *DatasetClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &DatasetClient{
		apiBase:   strings.TrimRight(apiBase, "/"),
		datasetID: datasetID,
		apiKey:    apiKey,
		http:      httpClient,
	}
}

// envelope is RAGFlow's standard response wrapper.
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// UploadDocuments uploads the named files to the dataset and returns
// the ids of the created documents.
func (c *DatasetClient) UploadDocuments(ctx context.Context, paths []string) ([]string, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no files to upload")
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", path, err)
		}
		part, err := writer.CreateFormFile("file", filepath.Base(path))
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("creating form part: %w", err)
		}
		if _, err := io.Copy(part, f); err != nil {
			f.Close()
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		f.Close()
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalizing form: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/datasets/%s/documents", c.apiBase, c.datasetID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	env, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var created []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(env.Data, &created); err != nil {
		return nil, &MalformedResponseError{Err: fmt.Errorf("unexpected upload response shape")}
	}
	var ids []string
	for _, doc := range created {
		if doc.ID != "" {
			ids = append(ids, doc.ID)
		}
	}
	return ids, nil
}

// StartParsing asks the backend to chunk the given documents.
func (c *DatasetClient) StartParsing(ctx context.Context, documentIDs []string) error {
	if len(documentIDs) == 0 {
		return fmt.Errorf("no document ids to parse")
	}

	body, err := json.Marshal(map[string][]string{"document_ids": documentIDs})
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	url := fmt.Sprintf("%s/api/v1/datasets/%s/chunks", c.apiBase, c.datasetID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	_, err = c.do(req)
	return err
}

// ListDocuments returns the dataset's documents, most recently updated
// first.
func (c *DatasetClient) ListDocuments(ctx context.Context) ([]Document, error) {
	url := fmt.Sprintf("%s/api/v1/datasets/%s/documents", c.apiBase, c.datasetID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	env, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var data struct {
		Docs []Document `json:"docs"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, &MalformedResponseError{Err: fmt.Errorf("unexpected list response shape")}
	}

	sort.SliceStable(data.Docs, func(i, j int) bool {
		return sortTime(data.Docs[i]) > sortTime(data.Docs[j])
	})
	return data.Docs, nil
}

func sortTime(d Document) int64 {
	if d.UpdateTime != 0 {
		return d.UpdateTime
	}
	return d.CreateTime
}

func (c *DatasetClient) do(req *http.Request) (*envelope, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	text, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(text))}
	}

	var env envelope
	if err := json.Unmarshal(text, &env); err != nil {
		return nil, &MalformedResponseError{Err: err}
	}
	if env.Code != 0 {
		if env.Message != "" {
			return nil, fmt.Errorf("ragflow error %d: %s", env.Code, env.Message)
		}
		return nil, fmt.Errorf("ragflow error %d", env.Code)
	}
	return &env, nil
}

// FormatSize renders a byte count the way the document list shows it.
func FormatSize(bytes int64) string {
	if bytes <= 0 {
		return ""
	}
	units := []string{"B", "KB", "MB", "GB"}
	i := int(math.Log(float64(bytes)) / math.Log(1024))
	if i > len(units)-1 {
		i = len(units) - 1
	}
	val := float64(bytes) / math.Pow(1024, float64(i))
	if val >= 10 || i == 0 {
		return fmt.Sprintf("%.0f %s", val, units[i])
	}
	return fmt.Sprintf("%.1f %s", val, units[i])
}
