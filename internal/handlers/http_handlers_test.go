package handlers

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"luckydraw/internal/models"
	"luckydraw/internal/scene"
	"luckydraw/internal/services"
	"luckydraw/internal/storage"

	"github.com/gin-gonic/gin"
)

type fakeScene struct {
	pointer [2]float64
	size    [2]int
}

func (f *fakeScene) Status() scene.Status            { return scene.Status{} }
func (f *fakeScene) PointerMove(x, y float64)        { f.pointer = [2]float64{x, y} }
func (f *fakeScene) Resize(width, height int)        { f.size = [2]int{width, height} }
func (f *fakeScene) SetFreeCamera(bool)              {}
func (f *fakeScene) SetWinners([]models.Participant) {}

type fakeFrames struct{ err error }

func (f fakeFrames) WritePNG(w io.Writer) error {
	if f.err != nil {
		return f.err
	}
	_, err := w.Write([]byte("\x89PNG"))
	return err
}

func setupRouter(t *testing.T, n int, frames FrameWriter) (*gin.Engine, *fakeScene) {
	t.Helper()
	tmpl := template.Must(template.New("layout.html").Parse(`<html><title>{{.title}}</title>{{.PageContent}}</html>`))
	template.Must(tmpl.New("lottery_interface.html").Parse(`{{range .Prizes}}<option value="{{.Key}}">{{.Label}}</option>{{end}}`))
	return setupRouterWithTemplates(t, n, frames, tmpl)
}

func setupRouterWithTemplates(t *testing.T, n int, frames FrameWriter, tmpl *template.Template) (*gin.Engine, *fakeScene) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	participants := make([]models.Participant, n)
	for i := range participants {
		participants[i] = models.Participant{ID: string(rune('a' + i)), Name: "Person " + string(rune('A'+i))}
	}
	store := services.NewSessionStore(storage.NewMemoryStore(), storage.DefaultName)
	store.Restore(context.Background())
	store.SetParticipants(participants)

	sc := &fakeScene{}
	service := services.NewLotteryService(services.NewDrawEngineWithSource(rand.NewSource(1)), nil)
	ctrl := services.NewSessionController(store, service, nil, sc)

	r := gin.New()
	NewHTTPHandler(ctrl, sc, frames, tmpl).RegisterRoutes(r)
	return r, sc
}

func perform(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeState(t *testing.T, body []byte) services.SessionState {
	t.Helper()
	var state services.SessionState
	if err := json.Unmarshal(body, &state); err != nil {
		t.Fatalf("Expected a state body, but got %v (%s)", err, body)
	}
	return state
}

func TestDrawRoundTrip(t *testing.T) {
	r, _ := setupRouter(t, 5, nil)

	if w := perform(r, http.MethodPost, "/api/prize", `{"key":"random2"}`); w.Code != http.StatusOK {
		t.Fatalf("Expected 200 selecting a prize, but got %d", w.Code)
	}
	if w := perform(r, http.MethodPost, "/api/start", ""); w.Code != http.StatusOK {
		t.Fatalf("Expected 200 on start, but got %d", w.Code)
	}
	w := perform(r, http.MethodPost, "/api/start", "")
	if w.Code != http.StatusConflict {
		t.Fatalf("Expected 409 on a second start, but got %d", w.Code)
	}

	w = perform(r, http.MethodPost, "/api/stop", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 on stop, but got %d", w.Code)
	}
	var stopped struct {
		Winners []models.Participant  `json:"winners"`
		State   services.SessionState `json:"state"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &stopped); err != nil {
		t.Fatalf("Expected no error, but got %v", err)
	}
	if len(stopped.Winners) != 2 || stopped.State.Status != models.StatusStopped || stopped.State.Remaining != 3 {
		t.Fatalf("Expected 2 winners and 3 remaining, but got %+v", stopped)
	}

	state := decodeState(t, perform(r, http.MethodPost, "/api/continue", "").Body.Bytes())
	if state.Status != models.StatusIdle {
		t.Errorf("Expected idle after continue, but got %s", state.Status)
	}

	var history []models.WinnerRecord
	if err := json.Unmarshal(perform(r, http.MethodGet, "/api/winners", "").Body.Bytes(), &history); err != nil {
		t.Fatalf("Expected no error, but got %v", err)
	}
	if len(history) != 1 || history[0].Prize != "2 People" {
		t.Errorf("Expected one record labelled 2 People, but got %+v", history)
	}

	state = decodeState(t, perform(r, http.MethodPost, "/api/reset", "").Body.Bytes())
	if state.Remaining != 5 || len(state.AllWinners) != 0 || len(state.DrawnIDs) != 0 {
		t.Errorf("Expected a cleared session after reset, but got %+v", state)
	}
}

func TestSelectErrors(t *testing.T) {
	r, _ := setupRouter(t, 3, nil)

	tests := []struct {
		name string
		path string
		body string
		code int
	}{
		{"unknown prize", "/api/prize", `{"key":"random99"}`, http.StatusBadRequest},
		{"missing prize", "/api/prize", `{}`, http.StatusBadRequest},
		{"unknown locale", "/api/locale", `{"locale":"!!"}`, http.StatusBadRequest},
		{"chinese", "/api/locale", `{"locale":"zh-CN"}`, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := perform(r, http.MethodPost, tt.path, tt.body); w.Code != tt.code {
				t.Errorf("Expected %d, but got %d (%s)", tt.code, w.Code, w.Body.String())
			}
		})
	}

	var prizes []map[string]any
	if err := json.Unmarshal(perform(r, http.MethodGet, "/api/prizes", "").Body.Bytes(), &prizes); err != nil {
		t.Fatalf("Expected no error, but got %v", err)
	}
	if len(prizes) == 0 || prizes[0]["label"] != "1人" {
		t.Errorf("Expected Chinese labels after switching locale, but got %+v", prizes)
	}
}

func TestExportResultsCSV(t *testing.T) {
	r, _ := setupRouter(t, 4, nil)
	perform(r, http.MethodPost, "/api/prize", `{"key":"random3"}`)
	perform(r, http.MethodPost, "/api/start", "")
	perform(r, http.MethodPost, "/api/stop", "")

	w := perform(r, http.MethodGet, "/api/export-results-csv", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, but got %d", w.Code)
	}
	body := w.Body.Bytes()
	if !bytes.HasPrefix(body, []byte("\xef\xbb\xbf")) {
		t.Fatal("Expected the export to start with a UTF-8 BOM")
	}
	rows, err := csv.NewReader(bytes.NewReader(body[3:])).ReadAll()
	if err != nil {
		t.Fatalf("Expected no error, but got %v", err)
	}
	if len(rows) != 4 || rows[0][0] != "Round" || rows[1][1] != "3 People" {
		t.Errorf("Expected a header and 3 winner rows, but got %v", rows)
	}
}

func TestParticipantsContract(t *testing.T) {
	r, _ := setupRouter(t, 3, nil)
	for _, path := range []string{"/api/participants", "/api/lottery/users"} {
		var users []models.Participant
		if err := json.Unmarshal(perform(r, http.MethodGet, path, "").Body.Bytes(), &users); err != nil {
			t.Fatalf("Expected no error, but got %v", err)
		}
		if len(users) != 3 || users[0].ID != "a" {
			t.Errorf("Expected 3 users from %s, but got %+v", path, users)
		}
	}
}

func TestSceneEndpoints(t *testing.T) {
	r, sc := setupRouter(t, 3, fakeFrames{})

	if w := perform(r, http.MethodPost, "/api/scene/pointer", `{"x":10,"y":-4}`); w.Code != http.StatusNoContent {
		t.Fatalf("Expected 204, but got %d", w.Code)
	}
	if sc.pointer != [2]float64{10, -4} {
		t.Errorf("Expected pointer (10,-4), but got %v", sc.pointer)
	}
	if w := perform(r, http.MethodPost, "/api/scene/resize", `{"width":0,"height":10}`); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for a zero width, but got %d", w.Code)
	}
	if w := perform(r, http.MethodPost, "/api/scene/resize", `{"width":640,"height":480}`); w.Code != http.StatusNoContent {
		t.Fatalf("Expected 204, but got %d", w.Code)
	}
	if sc.size != [2]int{640, 480} {
		t.Errorf("Expected size 640x480, but got %v", sc.size)
	}

	w := perform(r, http.MethodGet, "/api/scene/frame.png", "")
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "image/png" {
		t.Errorf("Expected a PNG frame, but got %d %q", w.Code, w.Header().Get("Content-Type"))
	}

	r, _ = setupRouter(t, 3, fakeFrames{err: errors.New("boom")})
	if w := perform(r, http.MethodGet, "/api/scene/frame.png", ""); w.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500 when encoding fails, but got %d", w.Code)
	}
}

func TestShowLotteryPage(t *testing.T) {
	r, _ := setupRouter(t, 3, nil)
	w := perform(r, http.MethodGet, "/", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, but got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `<option value="random1">1 Person</option>`) {
		t.Errorf("Expected the prize options in the page, but got %s", w.Body.String())
	}
}

func TestLotteryPageShowsSessionState(t *testing.T) {
	tmpl, err := template.ParseGlob("../../cmd/templates/*.html")
	if err != nil {
		t.Fatalf("Expected the page templates to parse, but got %v", err)
	}
	r, _ := setupRouterWithTemplates(t, 3, nil, tmpl)

	perform(r, http.MethodPost, "/api/locale", `{"locale":"zh"}`)
	perform(r, http.MethodPost, "/api/start", "")
	perform(r, http.MethodPost, "/api/stop", "")
	var history []models.WinnerRecord
	if err := json.Unmarshal(perform(r, http.MethodGet, "/api/winners", "").Body.Bytes(), &history); err != nil || len(history) != 1 {
		t.Fatalf("Expected one winner record, but got %v (%v)", history, err)
	}

	w := perform(r, http.MethodGet, "/", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, but got %d", w.Code)
	}
	page := w.Body.String()
	checks := map[string]string{
		"selected locale": `<option value="zh" selected>`,
		"winners history": `<span class="winner">` + history[0].Winners[0].Name + `</span>`,
		"history prize":   `<strong>1人</strong>`,
		"fullscreen":      `id="fullscreen"`,
	}
	for name, want := range checks {
		t.Run(name, func(t *testing.T) {
			if !strings.Contains(page, want) {
				t.Errorf("Expected the page to contain %q", want)
			}
		})
	}
	if strings.Contains(page, `<option value="en" selected>`) {
		t.Error("Expected English not to be selected after switching to zh")
	}
}
