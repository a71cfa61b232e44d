package grapherror

import (
	"fmt"
	"sort"
)

// defaultMessages provides user-friendly error messages for each category
var defaultMessages = map[Category]string{
	CategoryRecord:    "An interaction record was skipped because it is incomplete",
	CategoryMediator:  "A mediator protein is missing; the cascade is shown as a direct root link",
	CategoryOrphan:    "A protein was disconnected from the query and was linked to it directly",
	CategoryDuplicate: "A repeated interaction was merged",
	CategoryExpansion: "This protein cannot be expanded right now",
	CategoryStale:     "An outdated expansion result was ignored",
	CategoryProvider:  "Could not load interactors - please try again",
	CategoryPayload:   "The interaction data could not be read",
	CategoryInternal:  "An internal error occurred - please try again",
	CategoryWebSocket: "Connection to the graph server was interrupted",
}

// ToUIMessage converts the error to a user-friendly message suitable for UI display
func (e *GraphError) ToUIMessage() string {
	if e.UserMessage != "" {
		return e.UserMessage
	}
	if msg, ok := defaultMessages[e.Category]; ok {
		return msg
	}
	return "An error occurred"
}

// ToGraphMeta formats the error for inclusion in snapshot metadata
func (e *GraphError) ToGraphMeta() map[string]string {
	meta := map[string]string{
		"error":       e.Error(),
		"category":    string(e.Category),
		"description": e.ToUIMessage(),
		"timestamp":   e.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
	}

	if e.Subcategory != "" {
		meta["subcategory"] = e.Subcategory
	}

	if len(e.Context) > 0 {
		meta["context"] = fmt.Sprintf("%v", e.Context)
	}

	return meta
}

// ToLogFields converts error to structured log fields for logger.Warnw and friends.
// Context keys are emitted in sorted order.
func (e *GraphError) ToLogFields() []interface{} {
	fields := []interface{}{
		"error_category", e.Category,
		"error_message", e.Error(),
		"user_message", e.ToUIMessage(),
	}

	if e.Subcategory != "" {
		fields = append(fields, "error_subcategory", e.Subcategory)
	}

	keys := make([]string, 0, len(e.Context))
	for k := range e.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fields = append(fields, k, e.Context[k])
	}

	return fields
}

// IsCategory checks if the error matches a specific category
func (e *GraphError) IsCategory(cat Category) bool {
	return e.Category == cat
}

// IsSubcategory checks if the error matches a specific subcategory
func (e *GraphError) IsSubcategory(sub string) bool {
	return e.Subcategory == sub
}
