package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/firewatch/suggestionbox/internal/mailer"
	"github.com/firewatch/suggestionbox/internal/model"
	"github.com/firewatch/suggestionbox/internal/report"
	"github.com/firewatch/suggestionbox/internal/upload"
)

func testBase() BaseHandler {
	return BaseHandler{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

type fakeSubmitter struct {
	got    *model.Submission
	result report.Result
}

func (f *fakeSubmitter) Submit(_ context.Context, sub model.Submission) report.Result {
	f.got = &sub
	return f.result
}

type formFile struct {
	name        string
	contentType string
	data        []byte
}

func buildMultipartForm(t *testing.T, fields map[string]string, file *formFile) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if file != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, file.name))
		h.Set("Content-Type", file.contentType)
		part, err := writer.CreatePart(h)
		if err != nil {
			t.Fatal(err)
		}
		part.Write(file.data)
	}
	writer.Close()
	return body, writer.FormDataContentType()
}

func postReport(t *testing.T, h *ReportHandler, fields map[string]string, file *formFile) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := buildMultipartForm(t, fields, file)
	req := httptest.NewRequest(http.MethodPost, "/api/reports", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	h.Submit(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON %q: %v", rr.Body.String(), err)
	}
	return out
}

var validFields = map[string]string{
	"fullName": "",
	"category": "Suggestions",
	"area":     "Cafeteria",
	"message":  "Please add vegetarian options.",
}

func TestSubmitReportCreated(t *testing.T) {
	sub := &fakeSubmitter{result: report.Result{ReportID: "abc", Message: report.MessageSubmitted}}
	h := NewReportHandler(testBase(), sub)

	rr := postReport(t, h, validFields, nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body)
	}
	out := decode(t, rr)
	if out["reportId"] != "abc" || out["message"] != report.MessageSubmitted {
		t.Errorf("body = %v", out)
	}
	if sub.got.FullName != nil {
		t.Errorf("empty fullName should be absent, got %q", *sub.got.FullName)
	}
	if sub.got.File != nil {
		t.Error("no file was attached")
	}
	if sub.got.Category != "Suggestions" || sub.got.Area != "Cafeteria" {
		t.Errorf("submission = %+v", sub.got)
	}
}

func TestSubmitReportReadsAttachment(t *testing.T) {
	sub := &fakeSubmitter{result: report.Result{ReportID: "abc", Message: report.MessageSubmitted}}
	h := NewReportHandler(testBase(), sub)

	fields := map[string]string{"fullName": "Jane", "category": "Corruption", "area": "IT", "message": "Something is off here."}
	rr := postReport(t, h, fields, &formFile{name: "notes.txt", contentType: "text/plain", data: []byte("hello")})
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body)
	}
	f := sub.got.File
	if f == nil {
		t.Fatal("expected an attachment")
	}
	if f.Filename != "notes.txt" || f.ContentType != "text/plain" || f.Size != 5 || string(f.Data) != "hello" {
		t.Errorf("attachment = %+v", f)
	}
	if sub.got.FullName == nil || *sub.got.FullName != "Jane" {
		t.Errorf("FullName = %v", sub.got.FullName)
	}
}

func TestSubmitReportFailures(t *testing.T) {
	tests := []struct {
		name       string
		failure    report.Failure
		wantStatus int
		wantError  string
	}{
		{
			name: "validation",
			failure: report.Failure{Kind: report.KindValidation, Details: report.ValidationErrors{
				{Field: "message", Code: report.CodeMessageTooShort, Message: "too short"},
			}},
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid data",
		},
		{
			name:       "file too large",
			failure:    report.Failure{Kind: report.KindStorage, Message: upload.ErrFileTooLarge.Error(), Err: upload.ErrFileTooLarge},
			wantStatus: http.StatusBadRequest,
			wantError:  upload.ErrFileTooLarge.Error(),
		},
		{
			name:       "unsupported type",
			failure:    report.Failure{Kind: report.KindStorage, Message: upload.ErrUnsupportedFileType.Error(), Err: upload.ErrUnsupportedFileType},
			wantStatus: http.StatusBadRequest,
			wantError:  upload.ErrUnsupportedFileType.Error(),
		},
		{
			name:       "write fault",
			failure:    report.Failure{Kind: report.KindStorage, Message: "failed to store file", Err: upload.ErrStorageWrite},
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "persistence",
			failure:    report.Failure{Kind: report.KindPersistence, Message: "failed to save report", Err: errors.New("db down")},
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "internal",
			failure:    report.Failure{Kind: report.KindInternal, Err: errors.New("panic")},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := tt.failure
			h := NewReportHandler(testBase(), &fakeSubmitter{result: report.Result{Failure: &f}})

			rr := postReport(t, h, validFields, nil)
			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			out := decode(t, rr)
			if tt.wantError != "" && out["error"] != tt.wantError {
				t.Errorf("error = %v, want %q", out["error"], tt.wantError)
			}
			if strings.Contains(rr.Body.String(), "db down") {
				t.Error("internal error text leaked to client")
			}
		})
	}
}

func TestSubmitReportValidationDetails(t *testing.T) {
	f := report.Failure{Kind: report.KindValidation, Details: report.ValidationErrors{
		{Field: "category", Code: report.CodeInvalidCategory, Message: "bad"},
		{Field: "area", Code: report.CodeMissingArea, Message: "required"},
	}}
	h := NewReportHandler(testBase(), &fakeSubmitter{result: report.Result{Failure: &f}})

	rr := postReport(t, h, validFields, nil)
	out := decode(t, rr)
	details, ok := out["details"].([]any)
	if !ok || len(details) != 2 {
		t.Fatalf("details = %v", out["details"])
	}
	first := details[0].(map[string]any)
	if first["code"] != report.CodeInvalidCategory || first["field"] != "category" {
		t.Errorf("first detail = %v", first)
	}
}

func TestSubmitReportRejectsNonMultipart(t *testing.T) {
	sub := &fakeSubmitter{}
	h := NewReportHandler(testBase(), sub)

	req := httptest.NewRequest(http.MethodPost, "/api/reports", strings.NewReader(`{"category":"Corruption"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.Submit(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
	if sub.got != nil {
		t.Error("pipeline must not run for a malformed request")
	}
}

func TestSubmitReportOversizedBody(t *testing.T) {
	sub := &fakeSubmitter{}
	h := NewReportHandler(testBase(), sub)

	big := &formFile{name: "big.pdf", contentType: "application/pdf", data: make([]byte, upload.MaxFileSize+formOverhead)}
	rr := postReport(t, h, validFields, big)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
	if sub.got != nil {
		t.Error("pipeline must not run for an oversized body")
	}
}

type fakeNotifier struct {
	configured bool
	verifyErr  error
	result     mailer.Result
	sent       []mailer.Notification
}

func (f *fakeNotifier) Configured() bool { return f.configured }

func (f *fakeNotifier) Notify(_ context.Context, n mailer.Notification) mailer.Result {
	f.sent = append(f.sent, n)
	return f.result
}

func (f *fakeNotifier) VerifyConnection(context.Context) error { return f.verifyErr }

func postJSON(h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/notifications", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

func TestSendNotification(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		notifier   fakeNotifier
		wantStatus int
		wantKind   mailer.Kind
	}{
		{"delivered default kind", `{"to":"a@example.com","subject":"Hi","message":"Body"}`,
			fakeNotifier{configured: true, result: mailer.Result{Delivered: true}}, http.StatusOK, mailer.KindGeneral},
		{"delivered reply kind", `{"to":"a@example.com","subject":"Hi","message":"Body","type":"reply"}`,
			fakeNotifier{configured: true, result: mailer.Result{Delivered: true}}, http.StatusOK, mailer.KindReply},
		{"delivery failed", `{"to":"a@example.com","subject":"Hi","message":"Body"}`,
			fakeNotifier{configured: true, result: mailer.Result{Err: errors.New("boom")}}, http.StatusInternalServerError, mailer.KindGeneral},
		{"bad address", `{"to":"not-an-email","subject":"Hi","message":"Body"}`,
			fakeNotifier{configured: true}, http.StatusBadRequest, ""},
		{"missing subject", `{"to":"a@example.com","message":"Body"}`,
			fakeNotifier{configured: true}, http.StatusBadRequest, ""},
		{"unknown type", `{"to":"a@example.com","subject":"Hi","message":"Body","type":"urgent"}`,
			fakeNotifier{configured: true}, http.StatusBadRequest, ""},
		{"unknown field", `{"to":"a@example.com","subject":"Hi","message":"Body","cc":"x"}`,
			fakeNotifier{configured: true}, http.StatusBadRequest, ""},
		{"not configured", `{"to":"a@example.com","subject":"Hi","message":"Body"}`,
			fakeNotifier{}, http.StatusInternalServerError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := tt.notifier
			h := NewNotificationHandler(testBase(), &n, MailSummary{})

			rr := postJSON(h.Send, tt.body)
			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", rr.Code, tt.wantStatus, rr.Body)
			}
			if tt.wantKind == "" {
				if len(n.sent) != 0 {
					t.Error("nothing should have been sent")
				}
				return
			}
			if len(n.sent) != 1 || n.sent[0].Kind != tt.wantKind {
				t.Errorf("sent = %+v", n.sent)
			}
		})
	}
}

func TestVerifyNotifications(t *testing.T) {
	summary := MailSummary{Host: "smtp.example.com", Port: 587, User: "bot@example.com", HasPass: true, AdminEmail: "admin@example.com"}

	tests := []struct {
		name       string
		notifier   fakeNotifier
		wantStatus int
		wantSent   int
	}{
		{"missing credentials", fakeNotifier{}, http.StatusBadRequest, 0},
		{"handshake fails", fakeNotifier{configured: true, verifyErr: errors.New("refused")}, http.StatusInternalServerError, 0},
		{"test mail sent", fakeNotifier{configured: true, result: mailer.Result{Delivered: true}}, http.StatusOK, 1},
		{"test mail failed", fakeNotifier{configured: true, result: mailer.Result{Err: errors.New("x")}}, http.StatusOK, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := tt.notifier
			h := NewNotificationHandler(testBase(), &n, summary)

			rr := httptest.NewRecorder()
			h.Verify(rr, httptest.NewRequest(http.MethodGet, "/api/notifications/verify", nil))
			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if len(n.sent) != tt.wantSent {
				t.Fatalf("sent %d, want %d", len(n.sent), tt.wantSent)
			}
			out := decode(t, rr)
			cfg, ok := out["config"].(map[string]any)
			if !ok || cfg["host"] != "smtp.example.com" {
				t.Errorf("config = %v", out["config"])
			}
			if strings.Contains(rr.Body.String(), "password") {
				t.Error("password must never be echoed")
			}
			if tt.wantSent == 1 {
				if n.sent[0].To != "admin@example.com" {
					t.Errorf("test mail to %q", n.sent[0].To)
				}
				if out["success"] != n.result.Delivered {
					t.Errorf("success = %v", out["success"])
				}
			}
		})
	}
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestHealth(t *testing.T) {
	base := testBase()
	tests := []struct {
		name   string
		db     pinger
		status int
		want   string
	}{
		{"ok", fakePinger{}, http.StatusOK, "ok"},
		{"degraded", fakePinger{err: errors.New("down")}, http.StatusServiceUnavailable, "degraded"},
		{"no database", nil, http.StatusOK, "ok"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			base.Health(tt.db)(rr, httptest.NewRequest(http.MethodGet, "/api/health", nil))
			if rr.Code != tt.status {
				t.Fatalf("status = %d, want %d", rr.Code, tt.status)
			}
			if decode(t, rr)["status"] != tt.want {
				t.Errorf("body = %s", rr.Body)
			}
		})
	}
}
