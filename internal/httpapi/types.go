package httpapi

// LinkPayload is the wire representation of a short link.
type LinkPayload struct {
	Slug        string `doc:"The slug identifying the link"   example:"00001"                          json:"slug"`
	ShortURL    string `doc:"The full short URL"              example:"https://go.acme.com/00001"      json:"short_url"`
	OriginalURL string `doc:"The destination URL"             example:"https://example.com/long/path"  json:"original_url"`
	CreatedAt   string `doc:"Creation time, RFC 3339"         example:"2026-01-02T15:04:05Z"           json:"created_at"`
	CreatedBy   string `doc:"Email of the creating user"      example:"alice@acme.com"                 json:"created_by"`
}

// RedirectRequest resolves a slug to its destination.
type RedirectRequest struct {
	Slug string `doc:"The slug to resolve" example:"00001" path:"slug"`
}

// RedirectResponse is a permanent redirect to the original URL.
type RedirectResponse struct {
	Status  int
	Headers struct {
		Location     string `doc:"The original URL" header:"Location"`
		CacheControl string `header:"Cache-Control"`
	}
}

// CreateLinkRequest creates a new short link.
type CreateLinkRequest struct {
	Authorization string `doc:"Bearer ID token" header:"Authorization" required:"false"`
	DebugUser     string `header:"X-Debug-User" hidden:"true"          required:"false"`
	Body          struct {
		OriginalURL string `doc:"The URL to shorten"            example:"https://example.com/long/path" json:"original_url"`
		Alias       string `doc:"Optional caller-chosen slug"   example:"launch"                        json:"alias,omitempty" required:"false"`
	}
}

// CreateLinkResponse is the created link.
type CreateLinkResponse struct {
	Status int
	Body   LinkPayload
}

// ListLinksRequest lists existing links, newest first.
type ListLinksRequest struct {
	Authorization string `doc:"Bearer ID token" header:"Authorization" required:"false"`
	DebugUser     string `header:"X-Debug-User" hidden:"true"          required:"false"`
	Limit         int    `doc:"Maximum number of links to return" example:"200" query:"limit" required:"false"`
	// PageToken is reserved for future pagination and currently ignored.
	PageToken string `doc:"Opaque pagination token" query:"page_token" required:"false"`
}

// ListLinksResponse is a page of links.
type ListLinksResponse struct {
	Body struct {
		Links []LinkPayload `json:"links"`
		// NextToken is reserved for future pagination and is always empty.
		NextToken string `json:"next_token"`
	}
}

// DeleteLinkRequest removes a link. Its slug stays occupied.
type DeleteLinkRequest struct {
	Authorization string `doc:"Bearer ID token" header:"Authorization" required:"false"`
	DebugUser     string `header:"X-Debug-User" hidden:"true"          required:"false"`
	Slug          string `doc:"The slug to delete" path:"slug"`
}

// DeleteLinkResponse is empty; deletion answers 204.
type DeleteLinkResponse struct {
	Status int
}

// MeRequest returns the authenticated caller's identity.
type MeRequest struct {
	Authorization string `doc:"Bearer ID token" header:"Authorization" required:"false"`
	DebugUser     string `header:"X-Debug-User" hidden:"true"          required:"false"`
}

// MeResponse describes the authenticated user.
type MeResponse struct {
	Body struct {
		Email       string `doc:"Verified email"                      json:"email"`
		Domain      string `doc:"Workspace domain"                    json:"domain"`
		SubjectHash string `doc:"Stable anonymized subject identifier" json:"subject_hash"`
	}
}
