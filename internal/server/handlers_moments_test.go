package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MarcoPoloResearchLab/momentos/internal/apiclient"
	"github.com/MarcoPoloResearchLab/momentos/internal/moments"
)

func storedMoment() moments.Moment {
	return moments.Moment{
		Title:         "Beach day",
		Date:          "2024-03-01",
		Description:   "Sand everywhere",
		Feelings:      []moments.Feeling{moments.FeelingHappy},
		ImageFilename: "shore.jpg",
		ImageData:     "48656c6c6f",
		ImageCaption:  "The shore",
	}
}

func TestShowMomentRendersDetailView(t *testing.T) {
	harness := newTestHarness(t, &stubMomentAPI{moment: storedMoment()}, true)

	recorder := harness.serve(httptest.NewRequest(http.MethodGet, "/moments/17", http.NoBody))

	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", recorder.Code, recorder.Body.String())
	}
	var response momentResponsePayload
	decodeJSON(t, recorder, &response)
	view := response.Moment
	if view.ID != "17" || view.DisplayDate != "1 Mar 2024" {
		t.Fatalf("unexpected view header: %+v", view)
	}
	if view.ImageSource != "data:image/jpg;base64,SGVsbG8=" {
		t.Fatalf("unexpected image source %q", view.ImageSource)
	}
	if len(view.Feelings) != 1 || view.Feelings[0].Emoji != moments.FeelingHappy.Emoji() {
		t.Fatalf("unexpected feelings %+v", view.Feelings)
	}
	if view.Status != nil {
		t.Fatalf("expected no status, got %+v", view.Status)
	}
	if got := harness.api.requestIDs[0]; got != "req-fixed" {
		t.Fatalf("expected request id forwarded, got %q", got)
	}
	if recorder.Header().Get(requestIDHeader) != "req-fixed" {
		t.Fatalf("expected request id header on response")
	}
}

func TestShowMomentFlagsCorruptImage(t *testing.T) {
	moment := storedMoment()
	moment.ImageData = "abc"
	harness := newTestHarness(t, &stubMomentAPI{moment: moment}, true)

	recorder := harness.serve(httptest.NewRequest(http.MethodGet, "/moments/3", http.NoBody))

	var response momentResponsePayload
	decodeJSON(t, recorder, &response)
	if response.Moment.ImageSource != "" {
		t.Fatalf("expected empty image source, got %q", response.Moment.ImageSource)
	}
	if response.Moment.Status == nil || !response.Moment.Status.IsError || response.Moment.Status.DismissAfterMS != 0 {
		t.Fatalf("expected persistent error status, got %+v", response.Moment.Status)
	}
}

func TestShowMomentReportsUpstreamStatus(t *testing.T) {
	api := &stubMomentAPI{getErr: &apiclient.StatusError{Operation: "apiclient.get_moment", StatusCode: http.StatusNotFound, StatusText: "Not Found"}}
	harness := newTestHarness(t, api, true)

	recorder := harness.serve(httptest.NewRequest(http.MethodGet, "/moments/404", http.NoBody))

	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", recorder.Code)
	}
	var response statusResponsePayload
	decodeJSON(t, recorder, &response)
	if response.Status.Message != "Not Found" || response.Status.DismissAfterMS != 0 {
		t.Fatalf("unexpected status %+v", response.Status)
	}
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	harness := newTestHarness(t, nil, false)

	for _, target := range []string{"/dashboard", "/moments/1"} {
		recorder := harness.serve(httptest.NewRequest(http.MethodGet, target, http.NoBody))
		if recorder.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 for %s, got %d", target, recorder.Code)
		}
	}
}

func TestCreateMomentSubmitsFullPayload(t *testing.T) {
	harness := newTestHarness(t, nil, true)
	request := multipartRequest(t, http.MethodPost, "/moments", map[string][]string{
		string(moments.FieldTitle):        {"Hike"},
		string(moments.FieldDate):         {"2024-05-02"},
		string(moments.FieldDescription):  {"Up the hill"},
		string(moments.FieldFeelings):     {"Scared", "happy"},
		string(moments.FieldImageCaption): {"Summit"},
	}, &multipartFile{field: string(moments.FieldImage), filename: "summit.png", content: pngSample})

	recorder := harness.serve(request)

	if recorder.Code != http.StatusCreated {
		t.Fatalf("unexpected status %d: %s", recorder.Code, recorder.Body.String())
	}
	var response submitResponsePayload
	decodeJSON(t, recorder, &response)
	if response.Status.IsError || response.Status.Message != msgAdded || response.Status.DismissAfterMS != 10000 {
		t.Fatalf("unexpected status %+v", response.Status)
	}
	if len(harness.api.created) != 1 {
		t.Fatalf("expected one create call, got %d", len(harness.api.created))
	}
	payload := harness.api.created[0]
	if value, _ := payload.Value(moments.FieldFeelings); value != "happy,scared" {
		t.Fatalf("expected sorted feelings, got %q", value)
	}
	if payload.Image() == nil || payload.Image().Filename != "summit.png" {
		t.Fatalf("expected image attachment, got %+v", payload.Image())
	}
}

func TestCreateMomentRejectsInvalidForm(t *testing.T) {
	harness := newTestHarness(t, nil, true)
	request := multipartRequest(t, http.MethodPost, "/moments", map[string][]string{
		string(moments.FieldTitle): {""},
		string(moments.FieldDate):  {"yesterday"},
	}, nil)

	recorder := harness.serve(request)

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
	var response submitResponsePayload
	decodeJSON(t, recorder, &response)
	if len(response.Problems) < 3 {
		t.Fatalf("expected title, date and description problems, got %+v", response.Problems)
	}
	if len(harness.api.created) != 0 {
		t.Fatal("expected no create call for an invalid form")
	}
}

func TestCreateMomentRejectsNonImageUpload(t *testing.T) {
	harness := newTestHarness(t, nil, true)
	request := multipartRequest(t, http.MethodPost, "/moments", map[string][]string{
		string(moments.FieldTitle):        {"Notes"},
		string(moments.FieldDate):         {"2024-05-02"},
		string(moments.FieldDescription):  {"text"},
		string(moments.FieldImageCaption): {"not an image"},
	}, &multipartFile{field: string(moments.FieldImage), filename: "notes.png", content: []byte("plain text pretending")})

	recorder := harness.serve(request)

	if recorder.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415, got %d", recorder.Code)
	}
}

func TestUpdateMomentSubmitsOnlyChangedFields(t *testing.T) {
	harness := newTestHarness(t, &stubMomentAPI{moment: storedMoment()}, true)
	request := multipartRequest(t, http.MethodPost, "/moments/17", map[string][]string{
		string(moments.FieldTitle):    {"Beach evening"},
		string(moments.FieldFeelings): {"happy"},
	}, nil)

	recorder := harness.serve(request)

	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", recorder.Code, recorder.Body.String())
	}
	var response submitResponsePayload
	decodeJSON(t, recorder, &response)
	if response.Status.Message != msgUpdated {
		t.Fatalf("unexpected status %+v", response.Status)
	}
	if len(response.Fields) != 1 || response.Fields[0] != string(moments.FieldTitle) {
		t.Fatalf("expected only the title to be sent, got %v", response.Fields)
	}
	if harness.api.updatedIDs[0] != "17" {
		t.Fatalf("unexpected update id %q", harness.api.updatedIDs[0])
	}
}

func TestUpdateMomentWithNewImageSendsCaption(t *testing.T) {
	harness := newTestHarness(t, &stubMomentAPI{moment: storedMoment()}, true)
	request := multipartRequest(t, http.MethodPost, "/moments/17", nil,
		&multipartFile{field: string(moments.FieldImage), filename: "sunset.jpg", content: jpegSample})

	recorder := harness.serve(request)

	var response submitResponsePayload
	decodeJSON(t, recorder, &response)
	expected := []string{string(moments.FieldImage), string(moments.FieldImageCaption)}
	if len(response.Fields) != len(expected) {
		t.Fatalf("expected fields %v, got %v", expected, response.Fields)
	}
	for index, field := range expected {
		if response.Fields[index] != field {
			t.Fatalf("expected fields %v, got %v", expected, response.Fields)
		}
	}
}

func TestUpdateMomentWithoutChangesSkipsNetwork(t *testing.T) {
	harness := newTestHarness(t, &stubMomentAPI{moment: storedMoment()}, true)
	request := multipartRequest(t, http.MethodPost, "/moments/17", map[string][]string{
		string(moments.FieldTitle):    {"Beach day"},
		string(moments.FieldFeelings): {"HAPPY"},
	}, nil)

	recorder := harness.serve(request)

	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", recorder.Code)
	}
	var response submitResponsePayload
	decodeJSON(t, recorder, &response)
	if response.Status.Message != msgNoChanges || response.Status.IsError {
		t.Fatalf("unexpected status %+v", response.Status)
	}
	if len(harness.api.updated) != 0 {
		t.Fatal("expected no update call for an empty diff")
	}
}

func TestUpdateMomentReportsFallbackOnTransportFailure(t *testing.T) {
	api := &stubMomentAPI{moment: storedMoment(), submitErr: apiclient.ErrTransport}
	harness := newTestHarness(t, api, true)
	request := multipartRequest(t, http.MethodPost, "/moments/17", map[string][]string{
		string(moments.FieldDescription): {"Windy"},
	}, nil)

	recorder := harness.serve(request)

	if recorder.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", recorder.Code)
	}
	var response submitResponsePayload
	decodeJSON(t, recorder, &response)
	if !response.Status.IsError || response.Status.Message != msgUpdateFailed || response.Status.DismissAfterMS != 10000 {
		t.Fatalf("unexpected status %+v", response.Status)
	}
}
