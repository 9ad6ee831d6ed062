package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/firewatch/suggestionbox/internal/model"
	"github.com/firewatch/suggestionbox/internal/report"
	"github.com/firewatch/suggestionbox/internal/upload"
)

// formOverhead is the room allowed on top of the attachment for the text
// fields and multipart framing.
const formOverhead = 1 << 20

type submitter interface {
	Submit(ctx context.Context, sub model.Submission) report.Result
}

// ReportHandler accepts public report submissions.
type ReportHandler struct {
	BaseHandler
	reports submitter
}

func NewReportHandler(base BaseHandler, reports submitter) *ReportHandler {
	return &ReportHandler{BaseHandler: base, reports: reports}
}

// Submit handles POST /api/reports.
func (h *ReportHandler) Submit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, upload.MaxFileSize+formOverhead)

	if err := r.ParseMultipartForm(upload.MaxFileSize + formOverhead); err != nil {
		var maxBytesError *http.MaxBytesError
		if errors.As(err, &maxBytesError) {
			h.badRequestResponse(w, r, upload.ErrFileTooLarge)
			return
		}
		h.badRequestResponse(w, r, errors.New("request must be a valid multipart form"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	sub, err := readSubmission(r)
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}

	res := h.reports.Submit(r.Context(), sub)
	if f := res.Failure; f != nil {
		status := statusForFailure(f)
		switch {
		case f.Kind == report.KindValidation:
			h.failedValidationResponse(w, r, "invalid data", f.Details)
		case status == http.StatusBadRequest:
			h.errorResponse(w, r, status, f.Message)
		default:
			h.serverErrorResponse(w, r, fmt.Errorf("%s: %w", f.Kind, f.Err))
		}
		return
	}

	env := envelope{"message": res.Message, "reportId": res.ReportID}
	if err := h.writeJSON(w, http.StatusCreated, env, nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

// statusForFailure maps a pipeline failure onto an HTTP status.
func statusForFailure(f *report.Failure) int {
	switch f.Kind {
	case report.KindValidation:
		return http.StatusBadRequest
	case report.KindStorage:
		if report.ClientError(f.Err) {
			return http.StatusBadRequest
		}
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func readSubmission(r *http.Request) (model.Submission, error) {
	sub := model.Submission{
		Category: model.Category(r.PostFormValue("category")),
		Area:     r.PostFormValue("area"),
		Message:  r.PostFormValue("message"),
	}
	if name := r.PostFormValue("fullName"); name != "" {
		sub.FullName = &name
	}

	files := r.MultipartForm.File["file"]
	if len(files) == 0 {
		return sub, nil
	}
	att, err := readAttachment(files[0])
	if err != nil {
		return sub, err
	}
	sub.File = att
	return sub, nil
}

func readAttachment(fh *multipart.FileHeader) (*model.Attachment, error) {
	if fh.Size > upload.MaxFileSize {
		return nil, upload.ErrFileTooLarge
	}

	f, err := fh.Open()
	if err != nil {
		return nil, errors.New("could not read attached file")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.New("could not read attached file")
	}

	return &model.Attachment{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        int64(len(data)),
		Data:        data,
	}, nil
}
