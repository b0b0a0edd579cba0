package request

import "github.com/ndewijer/Market-Dashboard-Backend/internal/model"

// SaveDocsRequest is the optional body of POST /api/assets/{asset}/docs/{type}.
// Without items, the current documents of that type are archived.
type SaveDocsRequest struct {
	Items []model.DocItem `json:"items"`
}
