package reply

import (
	"net/url"
	"strings"
)

// DocumentURL builds the viewer link for a referenced document. Returns
// the empty string when either the base URL or the document id is missing.
func DocumentURL(baseURL, docID, documentName string) string {
	if baseURL == "" || docID == "" {
		return ""
	}
	encoded := url.PathEscape(strings.TrimSpace(docID))
	query := []string{"prefix=document"}
	if dot := strings.LastIndex(documentName, "."); dot >= 0 && dot < len(documentName)-1 {
		query = append(query, "ext="+url.QueryEscape(documentName[dot+1:]))
	}
	return strings.TrimRight(baseURL, "/") + "/document/" + encoded + "?" + strings.Join(query, "&")
}

// ThumbnailURL builds the thumbnail image link for a referenced document.
// Returns the empty string when the base URL or image id is missing.
func ThumbnailURL(baseURL, imageID, docID string) string {
	if baseURL == "" || imageID == "" {
		return ""
	}
	encoded := url.PathEscape(strings.TrimSpace(imageID))
	suffix := ""
	if docID != "" {
		suffix = "-thumbnail_" + url.PathEscape(strings.TrimSpace(docID)) + ".png"
	}
	return strings.TrimRight(baseURL, "/") + "/v1/document/image/" + encoded + suffix
}
