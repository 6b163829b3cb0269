package domain

import "fmt"

type ItemStatus string

const (
	ItemPublished        ItemStatus = "published"
	ItemProcessedLocally ItemStatus = "processed_locally"
	ItemUpdated          ItemStatus = "updated"
)

// ItemResult describes one successfully processed image.
type ItemResult struct {
	ImageID    string      `json:"imageId"`
	Status     ItemStatus  `json:"status"`
	Format     ImageFormat `json:"format"`
	MimeType   string      `json:"mimeType"`
	Width      int         `json:"width"`
	Height     int         `json:"height"`
	Size       int         `json:"size"`
	MediaID    int         `json:"mediaId,omitempty"`
	URL        string      `json:"url,omitempty"`
	ArchiveKey string      `json:"archiveKey,omitempty"`
	Message    string      `json:"message,omitempty"`
}

type ItemError struct {
	ImageID string `json:"imageId"`
	Message string `json:"message"`
}

type BatchResults struct {
	Success []ItemResult `json:"success"`
	Failed  []string     `json:"failed"`
}

type BatchResult struct {
	Processed   int          `json:"processed"`
	Failed      int          `json:"failed"`
	Total       int          `json:"total"`
	SuccessRate string       `json:"successRate"`
	Results     BatchResults `json:"results"`
	Errors      []ItemError  `json:"errors"`
}

// ItemOutcome is the per-item record the orchestrator collects before
// aggregation. Exactly one of Result and Err is set.
type ItemOutcome struct {
	ImageID string
	Result  *ItemResult
	Err     error
}

// NewBatchResult aggregates outcomes in input order. Every outcome lands in
// exactly one of Success and Failed, so Processed+Failed always equals Total.
func NewBatchResult(outcomes []ItemOutcome) *BatchResult {
	res := &BatchResult{
		Total: len(outcomes),
		Results: BatchResults{
			Success: []ItemResult{},
			Failed:  []string{},
		},
		Errors: []ItemError{},
	}

	for _, o := range outcomes {
		if o.Err == nil && o.Result != nil {
			res.Processed++
			res.Results.Success = append(res.Results.Success, *o.Result)
			continue
		}

		msg := "unknown error"
		if o.Err != nil {
			msg = o.Err.Error()
		}
		res.Failed++
		res.Results.Failed = append(res.Results.Failed, o.ImageID)
		res.Errors = append(res.Errors, ItemError{ImageID: o.ImageID, Message: msg})
	}

	res.SuccessRate = successRate(res.Processed, res.Total)
	return res
}

func successRate(processed, total int) string {
	if total == 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", float64(processed)*100/float64(total))
}
