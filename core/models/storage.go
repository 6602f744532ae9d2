package models

// TokenResponse is the body of a successful client-credentials grant
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
	ExpiresIn   int    `json:"expires_in,omitempty"`
}

// SignedURL is one pre-authorized upload or download URL
type SignedURL struct {
	URL string `json:"url"`
}

// UploadTransaction identifies an in-flight upload on the storage side
type UploadTransaction struct {
	ID         string `json:"id"`
	ResourceID string `json:"resourceId"`
}

// UploadURLs is the response to an upload-urls request: the signed
// URLs to PUT the file parts to, plus the upload transaction that the
// completion call must reference.
type UploadURLs struct {
	URLs   []SignedURL       `json:"urls"`
	Upload UploadTransaction `json:"upload"`
}

// UploadPart records the etag the storage backend returned for one
// uploaded part. This client always uploads a single part.
type UploadPart struct {
	PartID int    `json:"partId"`
	Etag   string `json:"etag"`
}

// CompleteUpload is the request body finalizing an upload transaction
type CompleteUpload struct {
	ResourceID string       `json:"resourceId"`
	UploadID   string       `json:"uploadId"`
	Parts      []UploadPart `json:"parts"`
}

// UploadResult carries the permanent URN assigned to a completed upload
type UploadResult struct {
	URN string `json:"urn"`
}

// DownloadURL is the response resolving a resource to a signed GET URL
type DownloadURL struct {
	URL string `json:"url"`
}

// SubmitResult carries the job identifier assigned at submission
type SubmitResult struct {
	ID string `json:"id"`
}
