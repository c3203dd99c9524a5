package utils

import (
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/likexian/whois"
	"github.com/valyala/fasthttp"

	"kairos/models"
)

// Destination verification cache, keyed by hostname
var destCache = struct {
	sync.RWMutex
	m map[string]error
}{m: make(map[string]error)}

var exportClient = &fasthttp.Client{
	ReadTimeout:  30 * time.Second,
	WriteTimeout: 30 * time.Second,
}

// VerifyExportDestination checks that an export destination looks like a
// real, reachable enterprise site before any job is accepted for it: the
// URL must parse, the host must resolve, and the domain must show up as
// registered in WHOIS.
func VerifyExportDestination(siteURL string) error {
	parsed, err := url.Parse(siteURL)
	if err != nil || parsed.Host == "" {
		return fmt.Errorf("invalid site URL")
	}
	if parsed.Scheme != "https" && parsed.Scheme != "http" {
		return fmt.Errorf("site URL must be http or https")
	}

	host := parsed.Hostname()

	destCache.RLock()
	cached, ok := destCache.m[host]
	destCache.RUnlock()
	if ok {
		return cached
	}

	err = verifyHost(host)

	destCache.Lock()
	destCache.m[host] = err
	destCache.Unlock()

	return err
}

func verifyHost(host string) error {
	if _, err := net.LookupHost(host); err != nil {
		return fmt.Errorf("destination host does not resolve: %s", host)
	}

	// WHOIS lookup on the registrable domain; a miss is not fatal for
	// intranet hosts, but an explicit "no match" is
	domain := registrableDomain(host)
	info, err := whois.Whois(domain)
	if err == nil {
		lowered := strings.ToLower(info)
		if strings.Contains(lowered, "no match") || strings.Contains(lowered, "not found") {
			return fmt.Errorf("destination domain is not registered: %s", domain)
		}
	}
	return nil
}

func registrableDomain(host string) string {
	parts := strings.Split(host, ".")
	if len(parts) <= 2 {
		return host
	}
	return strings.Join(parts[len(parts)-2:], ".")
}

// ExportDocument pushes a document to the job's destination and returns the
// URL the target reports for the created page or item.
func ExportDocument(job *models.ExportJob, doc *models.Document) (string, error) {
	token, err := Decrypt(job.AccessTokenEnc)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt destination token: %w", err)
	}

	switch job.Target {
	case models.ExportTargetConfluence:
		return exportToConfluence(job, doc, token)
	case models.ExportTargetSharePoint:
		return exportToSharePoint(job, doc, token)
	}
	return "", fmt.Errorf("unknown export target: %s", job.Target)
}

func exportToConfluence(job *models.ExportJob, doc *models.Document, token string) (string, error) {
	payload := map[string]interface{}{
		"type":  "page",
		"title": doc.Title,
		"space": map[string]string{"key": job.SpaceKey},
		"body": map[string]interface{}{
			"storage": map[string]string{
				"value":          doc.Content,
				"representation": "storage",
			},
		},
	}

	endpoint := strings.TrimRight(job.SiteURL, "/") + "/rest/api/content"
	body, err := postJSON(endpoint, token, payload)
	if err != nil {
		return "", err
	}

	var created struct {
		Links struct {
			Base  string `json:"base"`
			WebUI string `json:"webui"`
		} `json:"_links"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		return "", fmt.Errorf("unexpected Confluence response: %w", err)
	}
	return created.Links.Base + created.Links.WebUI, nil
}

func exportToSharePoint(job *models.ExportJob, doc *models.Document, token string) (string, error) {
	library := job.SpaceKey
	if library == "" {
		library = "Documents"
	}

	payload := map[string]interface{}{
		"Title":       doc.Title,
		"KairosKind":  doc.Kind,
		"Content":     doc.Content,
		"ContentType": doc.Format,
	}

	endpoint := fmt.Sprintf("%s/_api/web/lists/GetByTitle('%s')/items",
		strings.TrimRight(job.SiteURL, "/"), library)
	body, err := postJSON(endpoint, token, payload)
	if err != nil {
		return "", err
	}

	var created struct {
		OdataID string `json:"odata.id"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		return "", fmt.Errorf("unexpected SharePoint response: %w", err)
	}
	return created.OdataID, nil
}

func postJSON(endpoint, token string, payload interface{}) ([]byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(endpoint)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.SetBody(encoded)

	if err := exportClient.Do(req, resp); err != nil {
		return nil, fmt.Errorf("export request failed: %w", err)
	}

	status := resp.StatusCode()
	if status < 200 || status > 299 {
		return nil, fmt.Errorf("export rejected with status %d: %s", status, string(resp.Body()))
	}

	body := make([]byte, len(resp.Body()))
	copy(body, resp.Body())
	return body, nil
}
