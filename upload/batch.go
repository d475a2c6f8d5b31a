package upload

import (
	"context"
	"errors"
	"strings"
)

// ProgressFunc receives the completed percentage after each item.
type ProgressFunc func(percent float64)

// ItemError names the file that failed and why.
type ItemError struct {
	File    string `json:"file"`
	Message string `json:"message"`
}

type BatchResult struct {
	OverallSuccess bool        `json:"overall_success"`
	Results        []Result    `json:"results"`
	Errors         []ItemError `json:"errors,omitempty"`
}

// ErrorMessage joins all item errors with ", ".
func (b BatchResult) ErrorMessage() string {
	msgs := make([]string, len(b.Errors))
	for i, e := range b.Errors {
		msgs[i] = e.File + ": " + e.Message
	}
	return strings.Join(msgs, ", ")
}

// Uploaded counts the successful results in category c.
func (b BatchResult) Uploaded(c Category) int {
	n := 0
	for _, r := range b.Results {
		if r.Category == c {
			n++
		}
	}
	return n
}

// UploadBatch validates and uploads items one at a time in input order.
// A failing item is recorded and the batch moves on; progress is reported
// after every item as 100*i/n.
func (u *Uploader) UploadBatch(ctx context.Context, ownerID string, items []Item, progress ProgressFunc) BatchResult {
	res := BatchResult{Results: make([]Result, 0, len(items))}
	n := len(items)

	for i, item := range items {
		if err := Validate(item.Name, item.Size, item.Category); err != nil {
			res.Errors = append(res.Errors, itemError(item.Name, err))
		} else if r, err := u.Upload(ctx, ownerID, item); err != nil {
			res.Errors = append(res.Errors, itemError(item.Name, err))
		} else {
			r.Index = i
			res.Results = append(res.Results, r)
		}

		if progress != nil {
			progress(100 * float64(i+1) / float64(n))
		}
	}

	res.OverallSuccess = len(res.Errors) == 0
	return res
}

func itemError(file string, err error) ItemError {
	msg := err.Error()
	var ve *ValidationError
	var ue *UploadError
	switch {
	case errors.As(err, &ve):
		msg = ve.Reason
	case errors.As(err, &ue):
		msg = ue.Message
	}
	return ItemError{File: file, Message: msg}
}
