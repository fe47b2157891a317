package api

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/starford/raido/internal/capture"
	"github.com/starford/raido/internal/editsession"
	"github.com/starford/raido/internal/imagestore"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/slipservice"
	"github.com/starford/raido/internal/sliprepo"
)

// testEnv sets up a repository, service, capture session, and router.
// authToken="" means disabled mode.
func testEnv(t *testing.T, authToken string) (*sliprepo.Repository, http.Handler) {
	t.Helper()

	repo := sliprepo.New()
	svc := slipservice.NewService(repo)
	images, err := imagestore.NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	session := capture.NewSession(capture.NewStub(time.Millisecond), repo, capture.Config{})
	session.OnDiscard(func(ref string) {
		_ = images.Delete(ref)
	})
	editor := editsession.New()

	router := NewRouter(svc, session, editor, images, authToken != "", authToken, nil)
	return repo, router
}

func seedSlip(repo *sliprepo.Repository, t models.SlipType, trip, driver string, amount float64) models.Slip {
	return repo.Insert(models.Slip{Type: t, Date: "2024-06-15", TripNumber: trip, DriverName: driver, Amount: amount})
}

func TestCreateAndGetSlip(t *testing.T) {
	_, router := testEnv(t, "")

	body, _ := json.Marshal(map[string]string{"type": "fuel"})
	req := httptest.NewRequest(http.MethodPost, "/slips", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	var created models.Slip
	_ = json.Unmarshal(w.Body.Bytes(), &created)
	if created.ID == "" || created.Type != models.SlipTypeFuel {
		t.Fatalf("created = %+v", created)
	}

	req = httptest.NewRequest(http.MethodGet, "/slips/"+created.ID, nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
}

func TestCreateSlip_UnknownType(t *testing.T) {
	_, router := testEnv(t, "")

	body, _ := json.Marshal(map[string]string{"type": "banana"})
	req := httptest.NewRequest(http.MethodPost, "/slips", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("create with bad type = %d, want 400", w.Code)
	}
}

func TestListSlips_FilterAndSummary(t *testing.T) {
	repo, router := testEnv(t, "")
	seedSlip(repo, models.SlipTypeLoading, "TRP-1", "Mike", 100)
	seedSlip(repo, models.SlipTypeFuel, "TRP-2", "Chris", 500)

	req := httptest.NewRequest(http.MethodGet, "/slips?type=fuel&q=chris", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("list = %d", w.Code)
	}
	var resp SlipListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Slips) != 1 || resp.Slips[0].TripNumber != "TRP-2" {
		t.Errorf("slips = %+v", resp.Slips)
	}
	if resp.Summary.Count != 1 || resp.Summary.TotalAmount != 500 {
		t.Errorf("summary = %+v, want figures over the filtered set", resp.Summary)
	}
}

func TestListSlips_EmptyCollection(t *testing.T) {
	_, router := testEnv(t, "")

	req := httptest.NewRequest(http.MethodGet, "/slips", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("list = %d", w.Code)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte(`"slips":[]`)) {
		t.Errorf("empty list should marshal as [], body = %s", w.Body.String())
	}
}

func TestUpdateSlip(t *testing.T) {
	repo, router := testEnv(t, "")
	s := seedSlip(repo, models.SlipTypeLoading, "TRP-1", "Mike", 100)

	s.DriverName = "Updated"
	body, _ := json.Marshal(s)
	req := httptest.NewRequest(http.MethodPut, "/slips/"+s.ID, bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("update = %d, body = %s", w.Code, w.Body.String())
	}
	var updated models.Slip
	_ = json.Unmarshal(w.Body.Bytes(), &updated)
	if updated.DriverName != "Updated" || updated.ID != s.ID {
		t.Errorf("updated = %+v", updated)
	}
}

func TestUpdateSlip_NotFound(t *testing.T) {
	_, router := testEnv(t, "")

	body, _ := json.Marshal(models.Slip{})
	req := httptest.NewRequest(http.MethodPut, "/slips/999", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("update missing = %d, want 404", w.Code)
	}
}

func TestDeleteSlip_Idempotent(t *testing.T) {
	repo, router := testEnv(t, "")
	s := seedSlip(repo, models.SlipTypeLoading, "TRP-1", "Mike", 100)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodDelete, "/slips/"+s.ID, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusNoContent {
			t.Errorf("delete #%d = %d, want 204", i+1, w.Code)
		}
	}
}

func TestSummaryEndpoint(t *testing.T) {
	repo, router := testEnv(t, "")
	seedSlip(repo, models.SlipTypeFuel, "TRP-1", "Chris", 500)

	req := httptest.NewRequest(http.MethodGet, "/summary", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("summary = %d", w.Code)
	}
	var resp SummaryResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Types) != 3 {
		t.Fatalf("types = %d, want 3 (zero rows included)", len(resp.Types))
	}
}

// Workbook transfer over HTTP.

func uploadWorkbook(t *testing.T, router http.Handler, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "slips.xlsx")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = io.Copy(part, bytes.NewReader(content))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestImportEndpoint(t *testing.T) {
	repo, router := testEnv(t, "")

	f := excelize.NewFile()
	_ = f.SetCellValue("Sheet1", "A1", "Trip Number")
	_ = f.SetCellValue("Sheet1", "A2", "TRP-77")
	var wb bytes.Buffer
	if err := f.Write(&wb); err != nil {
		t.Fatal(err)
	}
	f.Close()

	w := uploadWorkbook(t, router, wb.Bytes())
	if w.Code != http.StatusOK {
		t.Fatalf("import = %d, body = %s", w.Code, w.Body.String())
	}
	var resp ImportResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Imported != 1 || repo.Len() != 1 {
		t.Errorf("imported = %d, repo len = %d", resp.Imported, repo.Len())
	}
}

func TestImportEndpoint_Unreadable(t *testing.T) {
	repo, router := testEnv(t, "")

	w := uploadWorkbook(t, router, []byte("junk"))
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad workbook = %d, want 400", w.Code)
	}
	if repo.Len() != 0 {
		t.Errorf("collection changed on failed import")
	}
}

func TestExportEndpoint(t *testing.T) {
	repo, router := testEnv(t, "")
	seedSlip(repo, models.SlipTypeFuel, "TRP-1", "Chris", 500)

	req := httptest.NewRequest(http.MethodGet, "/export", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("export = %d", w.Code)
	}
	if cd := w.Header().Get("Content-Disposition"); !bytes.Contains([]byte(cd), []byte("Trucking_Slips_")) {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if _, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes())); err != nil {
		t.Errorf("exported body is not a workbook: %v", err)
	}
}

// Capture workflow over HTTP.

func postJSON(t *testing.T, router http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func uploadCaptureImage(t *testing.T, router http.Handler) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("file", "scan.png")
	_, _ = part.Write([]byte("fake-png-data"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/capture/image", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCaptureFlow(t *testing.T) {
	repo, router := testEnv(t, "")

	w := postJSON(t, router, "/capture/type", map[string]string{"type": "fuel"})
	if w.Code != http.StatusOK {
		t.Fatalf("select type = %d, body = %s", w.Code, w.Body.String())
	}

	w = uploadCaptureImage(t, router)
	if w.Code != http.StatusOK {
		t.Fatalf("upload image = %d, body = %s", w.Code, w.Body.String())
	}
	var snap CaptureSnapshot
	_ = json.Unmarshal(w.Body.Bytes(), &snap)
	if snap.State != capture.StateReviewing || snap.Fields.TripNumber == "" {
		t.Fatalf("snapshot = %+v, want reviewing with recognized fields", snap)
	}
	if snap.ImageRef == "" {
		t.Fatal("snapshot missing image ref")
	}
	ref := snap.ImageRef

	// Preview should be retrievable while reviewing.
	req := httptest.NewRequest(http.MethodGet, "/capture/image/"+snap.ImageRef, nil)
	pw := httptest.NewRecorder()
	router.ServeHTTP(pw, req)
	if pw.Code != http.StatusOK || pw.Body.String() != "fake-png-data" {
		t.Errorf("preview = %d, body = %q", pw.Code, pw.Body.String())
	}

	w = postJSON(t, router, "/capture/confirm", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("confirm = %d, body = %s", w.Code, w.Body.String())
	}
	var slip models.Slip
	_ = json.Unmarshal(w.Body.Bytes(), &slip)
	if !slip.OCRProcessed || slip.Type != models.SlipTypeFuel {
		t.Errorf("confirmed slip = %+v", slip)
	}
	if repo.Len() != 1 {
		t.Errorf("repo len = %d, want 1", repo.Len())
	}

	// Session is idle again.
	req = httptest.NewRequest(http.MethodGet, "/capture", nil)
	sw := httptest.NewRecorder()
	router.ServeHTTP(sw, req)
	_ = json.Unmarshal(sw.Body.Bytes(), &snap)
	if snap.State != capture.StateIdle {
		t.Errorf("state after confirm = %s, want idle", snap.State)
	}

	// The confirmed preview is removed from the store.
	req = httptest.NewRequest(http.MethodGet, "/capture/image/"+ref, nil)
	gw := httptest.NewRecorder()
	router.ServeHTTP(gw, req)
	if gw.Code != http.StatusNotFound {
		t.Errorf("preview after confirm = %d, want 404", gw.Code)
	}
}

func TestCaptureImage_WithoutType(t *testing.T) {
	_, router := testEnv(t, "")

	w := uploadCaptureImage(t, router)
	if w.Code != http.StatusConflict {
		t.Errorf("image before type = %d, want 409", w.Code)
	}
}

func TestCaptureConfirm_ValidationFailure(t *testing.T) {
	_, router := testEnv(t, "")

	postJSON(t, router, "/capture/type", map[string]string{"type": "loading"})
	uploadCaptureImage(t, router)

	// Blank out the required fields during review.
	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(capture.Fields{DriverName: "Only Driver"})
	req := httptest.NewRequest(http.MethodPut, "/capture/fields", &buf)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("set fields = %d", w.Code)
	}

	w = postJSON(t, router, "/capture/confirm", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("confirm with blank required fields = %d, want 400", w.Code)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("trip_number")) {
		t.Errorf("validation body missing field name: %s", w.Body.String())
	}

	// Draft survives; session still reviewing.
	req = httptest.NewRequest(http.MethodGet, "/capture", nil)
	sw := httptest.NewRecorder()
	router.ServeHTTP(sw, req)
	var snap CaptureSnapshot
	_ = json.Unmarshal(sw.Body.Bytes(), &snap)
	if snap.State != capture.StateReviewing {
		t.Errorf("state = %s, want reviewing after failed confirm", snap.State)
	}
}

func TestCaptureRescanAndCancel(t *testing.T) {
	_, router := testEnv(t, "")

	postJSON(t, router, "/capture/type", map[string]string{"type": "offloading"})
	uploadCaptureImage(t, router)

	w := postJSON(t, router, "/capture/rescan", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("rescan = %d", w.Code)
	}
	var snap CaptureSnapshot
	_ = json.Unmarshal(w.Body.Bytes(), &snap)
	if snap.State != capture.StateAwaitingImage || snap.SlipType != models.SlipTypeOffloading {
		t.Errorf("snapshot after rescan = %+v", snap)
	}

	w = postJSON(t, router, "/capture/cancel", nil)
	_ = json.Unmarshal(w.Body.Bytes(), &snap)
	if snap.State != capture.StateIdle {
		t.Errorf("state after cancel = %s, want idle", snap.State)
	}
}

// Inline edit session over HTTP.

func TestEditFlow(t *testing.T) {
	repo, router := testEnv(t, "")
	s := seedSlip(repo, models.SlipTypeLoading, "TRP-1", "Mike", 100)

	w := postJSON(t, router, "/slips/"+s.ID+"/edit", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("begin = %d", w.Code)
	}

	// A second begin conflicts.
	w = postJSON(t, router, "/slips/"+s.ID+"/edit", nil)
	if w.Code != http.StatusConflict {
		t.Errorf("second begin = %d, want 409", w.Code)
	}

	s.DriverName = "Edited"
	body, _ := json.Marshal(s)
	req := httptest.NewRequest(http.MethodPut, "/edit", bytes.NewReader(body))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("set draft = %d", w.Code)
	}

	w = postJSON(t, router, "/edit/save", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("save = %d, body = %s", w.Code, w.Body.String())
	}
	got, err := repo.Get(s.ID)
	if err != nil || got.DriverName != "Edited" {
		t.Errorf("saved record = %+v, err = %v", got, err)
	}

	// Draft closed.
	req = httptest.NewRequest(http.MethodGet, "/edit", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("draft after save = %d, want 404", w.Code)
	}
}

func TestEditBegin_NotFound(t *testing.T) {
	_, router := testEnv(t, "")

	w := postJSON(t, router, "/slips/999/edit", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("begin on missing = %d, want 404", w.Code)
	}
}

func TestEditCancelReleasesSlot(t *testing.T) {
	repo, router := testEnv(t, "")
	s := seedSlip(repo, models.SlipTypeLoading, "TRP-1", "Mike", 100)

	postJSON(t, router, "/slips/"+s.ID+"/edit", nil)
	w := postJSON(t, router, "/edit/cancel", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("cancel = %d", w.Code)
	}
	w = postJSON(t, router, "/slips/"+s.ID+"/edit", nil)
	if w.Code != http.StatusOK {
		t.Errorf("begin after cancel = %d, want 200", w.Code)
	}
}

// Auth middleware.

func TestAuthMiddleware_ValidToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/slips", nil)
	req.Header.Set("Authorization", "Bearer secret123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("authed list = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/slips", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/slips", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}
