package model

// IssuePayload is the request body of the announcement issue
type IssuePayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}
