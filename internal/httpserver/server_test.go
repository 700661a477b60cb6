package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/robalobadob/wordduel/internal/auth"
	"github.com/robalobadob/wordduel/internal/coordinator"
	"github.com/robalobadob/wordduel/internal/game"
	"github.com/robalobadob/wordduel/internal/history"
	"github.com/robalobadob/wordduel/internal/store"
	"github.com/robalobadob/wordduel/internal/words"
)

type testEnv struct {
	ts      *httptest.Server
	rooms   *store.Memory
	issuer  *auth.Issuer
	archive *history.Archive
}

func newTestEnv(t *testing.T, withArchive bool) *testEnv {
	t.Helper()
	bank, err := words.NewBank(map[words.Language][]string{
		words.Italian: {"AMORE"},
		words.English: {"APPLE"},
	})
	if err != nil {
		t.Fatal(err)
	}
	env := &testEnv{
		rooms:  store.NewMemoryStore(bank),
		issuer: auth.NewIssuer("test-secret", time.Hour),
	}
	var opts []coordinator.Option
	if withArchive {
		env.archive, err = history.Open(filepath.Join(t.TempDir(), "matches.db"))
		if err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { _ = env.archive.Close() })
		opts = append(opts, coordinator.WithArchive(env.archive))
	}
	coord := coordinator.New(env.rooms, words.Italian, opts...)
	srv := New(Deps{
		Coordinator: coord,
		Rooms:       env.rooms,
		Words:       bank,
		Issuer:      env.issuer,
		Archive:     env.archive,
		Origins:     []string{"http://localhost:5173"},
	})
	env.ts = httptest.NewServer(srv.Router())
	t.Cleanup(env.ts.Close)
	return env
}

func (e *testEnv) wsURL(token string) string {
	u := "ws" + strings.TrimPrefix(e.ts.URL, "http") + "/ws"
	if token != "" {
		u += "?token=" + token
	}
	return u
}

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		t.Fatalf("Dial(%s) error = %v (status %d)", url, err, status)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, cmd coordinator.Command) {
	t.Helper()
	if err := conn.WriteJSON(cmd); err != nil {
		t.Fatalf("WriteJSON(%+v) error = %v", cmd, err)
	}
}

// expect reads until a message of type typ arrives and decodes its payload
// into out (if non-nil).
func expect(t *testing.T, conn *websocket.Conn, typ string, out any) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var m envelope
		if err := conn.ReadJSON(&m); err != nil {
			t.Fatalf("waiting for %q: %v", typ, err)
		}
		if m.Type != typ {
			continue
		}
		if out != nil {
			if err := json.Unmarshal(m.Payload, out); err != nil {
				t.Fatalf("decode %q payload: %v", typ, err)
			}
		}
		return
	}
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestHealthAndNotFound(t *testing.T) {
	env := newTestEnv(t, false)

	var health map[string]bool
	if code := getJSON(t, env.ts.URL+"/health", &health); code != http.StatusOK || !health["ok"] {
		t.Errorf("/health = %d %v", code, health)
	}

	var nf map[string]string
	if code := getJSON(t, env.ts.URL+"/nope", &nf); code != http.StatusNotFound || nf["error"] != "not_found" {
		t.Errorf("/nope = %d %v", code, nf)
	}
}

func TestSessionEndpoint(t *testing.T) {
	env := newTestEnv(t, false)

	resp, err := http.Post(env.ts.URL+"/session", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST /session status = %d", resp.StatusCode)
	}
	var sess auth.Session
	if err := json.NewDecoder(resp.Body).Decode(&sess); err != nil {
		t.Fatal(err)
	}
	id, err := env.issuer.Verify(sess.Token)
	if err != nil {
		t.Fatalf("Verify(issued token) error = %v", err)
	}
	if id != sess.PlayerID {
		t.Errorf("token subject = %q, want %q", id, sess.PlayerID)
	}
}

func TestStats(t *testing.T) {
	env := newTestEnv(t, false)

	var st statsRes
	if code := getJSON(t, env.ts.URL+"/stats", &st); code != http.StatusOK {
		t.Fatalf("/stats status = %d", code)
	}
	if st.Rooms != 0 || st.Connections != 0 {
		t.Errorf("/stats = %+v, want empty", st)
	}
	if st.Words["it"] != 1 || st.Words["en"] != 1 {
		t.Errorf("/stats words = %v", st.Words)
	}
}

func TestMatchesDisabled(t *testing.T) {
	env := newTestEnv(t, false)
	var body map[string]string
	if code := getJSON(t, env.ts.URL+"/matches", &body); code != http.StatusNotFound || body["error"] != "archive_disabled" {
		t.Errorf("/matches = %d %v", code, body)
	}
}

func TestMatchesInvalidLimit(t *testing.T) {
	env := newTestEnv(t, true)
	for _, q := range []string{"abc", "0", "-3"} {
		var body map[string]string
		if code := getJSON(t, env.ts.URL+"/matches?limit="+q, &body); code != http.StatusBadRequest {
			t.Errorf("/matches?limit=%s status = %d, want 400", q, code)
		}
	}
}

func TestWebSocketRejectsBadToken(t *testing.T) {
	env := newTestEnv(t, false)
	_, resp, err := websocket.DefaultDialer.Dial(env.wsURL("garbage"), nil)
	if err == nil {
		t.Fatal("Dial with a bad token succeeded")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("Dial with a bad token: resp = %v", resp)
	}
}

func TestWebSocketRejectsSecondConnection(t *testing.T) {
	env := newTestEnv(t, false)
	sess, err := env.issuer.NewSession()
	if err != nil {
		t.Fatal(err)
	}
	dial(t, env.wsURL(sess.Token))

	_, resp, err := websocket.DefaultDialer.Dial(env.wsURL(sess.Token), nil)
	if err == nil {
		t.Fatal("second Dial with the same token succeeded")
	}
	if resp == nil || resp.StatusCode != http.StatusConflict {
		t.Fatalf("second Dial: resp = %v", resp)
	}
}

func TestWebSocketRejectsForeignOrigin(t *testing.T) {
	env := newTestEnv(t, false)
	h := http.Header{"Origin": []string{"http://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(env.wsURL(""), h)
	if err == nil {
		t.Fatal("Dial from a foreign origin succeeded")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("foreign origin: resp = %v", resp)
	}
}

func TestWebSocketGame(t *testing.T) {
	env := newTestEnv(t, true)

	// Player A connects without a token and is handed a session.
	a := dial(t, env.wsURL(""))
	var sessA auth.Session
	expect(t, a, coordinator.MsgSession, &sessA)
	if sessA.PlayerID == "" || sessA.Token == "" {
		t.Fatalf("session payload = %+v", sessA)
	}

	send(t, a, coordinator.Command{Type: coordinator.CmdCreateRoom, Language: "en"})
	var created coordinator.CodePayload
	expect(t, a, coordinator.MsgRoomCreated, &created)
	if len(created.Code) != store.CodeLength {
		t.Fatalf("room code = %q", created.Code)
	}
	var lobby coordinator.TextPayload
	expect(t, a, coordinator.MsgLobbyMessage, &lobby)
	if !strings.Contains(lobby.Message, created.Code) {
		t.Errorf("lobby message %q does not mention %s", lobby.Message, created.Code)
	}

	// Player B uses a pre-issued token.
	sessB, err := env.issuer.NewSession()
	if err != nil {
		t.Fatal(err)
	}
	b := dial(t, env.wsURL(sessB.Token))
	send(t, b, coordinator.Command{Type: coordinator.CmdJoinRoom, Code: strings.ToLower(created.Code)})

	for _, c := range []*websocket.Conn{a, b} {
		var start coordinator.StartGamePayload
		expect(t, c, coordinator.MsgStartGame, &start)
		if len(start.Players) != 2 || start.Players[0] != sessA.PlayerID || start.Players[1] != sessB.PlayerID {
			t.Fatalf("startGame players = %v", start.Players)
		}
	}
	var turnA, turnB coordinator.TurnStatusPayload
	expect(t, a, coordinator.MsgUpdateTurnStatus, &turnA)
	expect(t, b, coordinator.MsgUpdateTurnStatus, &turnB)
	if !turnA.IsTurn || turnB.IsTurn {
		t.Fatalf("turns after start: A=%v B=%v", turnA.IsTurn, turnB.IsTurn)
	}

	// B may not play out of turn.
	send(t, b, coordinator.Command{Type: coordinator.CmdSubmitWord, Word: "APPLE"})
	var gerr coordinator.ErrorPayload
	expect(t, b, coordinator.MsgGameError, &gerr)
	if gerr.Code != "not_your_turn" {
		t.Errorf("out-of-turn error = %+v", gerr)
	}

	send(t, a, coordinator.Command{Type: coordinator.CmdSubmitWord, Word: "plane"})
	for _, c := range []*websocket.Conn{a, b} {
		var st coordinator.GameStatePayload
		expect(t, c, coordinator.MsgUpdateGameState, &st)
		if st.CurrentRow != 1 || st.MaxRows != game.StartRows || len(st.Grid) != 1 {
			t.Fatalf("state after first guess = %+v", st)
		}
		want := []game.Mark{game.MarkPresent, game.MarkPresent, game.MarkPresent, game.MarkAbsent, game.MarkCorrect}
		for i, m := range st.Grid[0].Feedback {
			if m != want[i] {
				t.Fatalf("feedback = %v, want %v", st.Grid[0].Feedback, want)
			}
		}
		if st.CurrentTurn != sessB.PlayerID {
			t.Errorf("currentTurn = %q, want B", st.CurrentTurn)
		}
	}

	send(t, b, coordinator.Command{Type: coordinator.CmdSubmitWord, Word: "APPLE"})
	for _, c := range []*websocket.Conn{a, b} {
		var over coordinator.GameOverPayload
		expect(t, c, coordinator.MsgGameOver, &over)
		if over.WinnerID != sessB.PlayerID || over.SecretWord != "APPLE" || over.WinnerName != "Player 2" {
			t.Errorf("gameOver = %+v", over)
		}
	}

	// The win lands in the archive asynchronously.
	deadline := time.Now().Add(3 * time.Second)
	for {
		var res matchesRes
		if code := getJSON(t, env.ts.URL+"/matches", &res); code != http.StatusOK {
			t.Fatalf("/matches status = %d", code)
		}
		if len(res.Matches) == 1 {
			m := res.Matches[0]
			if m.WinnerID != sessB.PlayerID || m.LoserID != sessA.PlayerID || m.Attempts != 2 || m.Secret != "APPLE" {
				t.Errorf("archived match = %+v", m)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("match never archived")
		}
		time.Sleep(20 * time.Millisecond)
	}

	// B leaves; A is told and the room goes away.
	_ = b.Close()
	var left coordinator.TextPayload
	expect(t, a, coordinator.MsgOpponentDisconnected, &left)
	if left.Message == "" {
		t.Error("opponentDisconnected without a message")
	}
	deadline = time.Now().Add(3 * time.Second)
	for env.rooms.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("room still registered after disconnect")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWebSocketMalformedCommand(t *testing.T) {
	env := newTestEnv(t, false)
	conn := dial(t, env.wsURL(""))
	expect(t, conn, coordinator.MsgSession, nil)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatal(err)
	}
	var gerr coordinator.ErrorPayload
	expect(t, conn, coordinator.MsgGameError, &gerr)
	if gerr.Code != "unknown_command" {
		t.Errorf("malformed command error = %+v", gerr)
	}
}
