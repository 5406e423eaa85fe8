package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"betting-season-bot/internal/model"
	"betting-season-bot/internal/repository"
)

// memDB is an in-memory stand-in for the postgres repositories.
type memDB struct {
	mu         sync.Mutex
	chats      map[int64]*model.Chat
	weeks      []*model.Week
	nextWeekID int64
	polls      map[string]*model.Poll
	bets       map[[3]int64]*model.Bet
	users      map[int64]*model.User
	games      map[int64]model.Game
	weekGames  map[int64][]int64
	failWith   error
}

func newMemDB() *memDB {
	return &memDB{
		chats:     make(map[int64]*model.Chat),
		polls:     make(map[string]*model.Poll),
		bets:      make(map[[3]int64]*model.Bet),
		users:     make(map[int64]*model.User),
		games:     make(map[int64]model.Game),
		weekGames: make(map[int64][]int64),
	}
}

func (db *memDB) addGames(games ...model.Game) {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, g := range games {
		db.games[g.ID] = g
	}
}

func (db *memDB) weeksOf(chatID int64) []*model.Week {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []*model.Week
	for _, w := range db.weeks {
		if w.ChatID == chatID {
			cp := *w
			out = append(out, &cp)
		}
	}
	return out
}

func (db *memDB) pollsOf(chatID int64) []*model.Poll {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []*model.Poll
	for _, p := range db.polls {
		if p.ChatID == chatID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GameID < out[j].GameID })
	return out
}

type memChats struct{ db *memDB }

func (s memChats) GetOrCreate(_ context.Context, chatID int64) (*model.Chat, bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.failWith != nil {
		return nil, false, s.db.failWith
	}
	if c, ok := s.db.chats[chatID]; ok {
		cp := *c
		return &cp, false, nil
	}
	c := &model.Chat{ID: chatID, Status: model.ChatStatusSetup, CreatedAt: time.Now()}
	s.db.chats[chatID] = c
	cp := *c
	return &cp, true, nil
}

func (s memChats) SetStatus(_ context.Context, chatID int64, status model.ChatStatus) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	c, ok := s.db.chats[chatID]
	if !ok {
		return repository.ErrChatNotFound
	}
	c.Status = status
	return nil
}

func (s memChats) ListActive(_ context.Context) ([]int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.failWith != nil {
		return nil, s.db.failWith
	}
	var ids []int64
	for id, c := range s.db.chats {
		if c.IsActive() {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s memChats) Remove(_ context.Context, chatID int64) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for k, b := range s.db.bets {
		if b.ChatID == chatID {
			delete(s.db.bets, k)
		}
	}
	for id, p := range s.db.polls {
		if p.ChatID == chatID {
			delete(s.db.polls, id)
		}
	}
	kept := s.db.weeks[:0]
	for _, w := range s.db.weeks {
		if w.ChatID != chatID {
			kept = append(kept, w)
		}
	}
	s.db.weeks = kept
	delete(s.db.chats, chatID)
	return nil
}

type memWeeks struct{ db *memDB }

func (s memWeeks) Latest(_ context.Context, chatID int64) (*model.Week, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.failWith != nil {
		return nil, s.db.failWith
	}
	var latest *model.Week
	for _, w := range s.db.weeks {
		if w.ChatID != chatID {
			continue
		}
		if latest == nil || w.EndDate.After(latest.EndDate) || (w.EndDate.Equal(latest.EndDate) && w.ID > latest.ID) {
			latest = w
		}
	}
	if latest == nil {
		return nil, repository.ErrWeekNotFound
	}
	cp := *latest
	return &cp, nil
}

func (s memWeeks) Insert(_ context.Context, week *model.Week) (*model.Week, bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, w := range s.db.weeks {
		if w.ChatID == week.ChatID && w.WeekNumber == week.WeekNumber {
			return nil, false, nil
		}
	}
	s.db.nextWeekID++
	w := *week
	w.ID = s.db.nextWeekID
	s.db.weeks = append(s.db.weeks, &w)
	cp := w
	return &cp, true, nil
}

func (s memWeeks) MarkSlatePublished(_ context.Context, weekID int64) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, w := range s.db.weeks {
		if w.ID == weekID {
			w.SlatePublished = true
			return nil
		}
	}
	return repository.ErrWeekNotFound
}

func (s memWeeks) SaveSlate(_ context.Context, weekID int64, gameIDs []int64) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.weekGames[weekID]; !ok {
		s.db.weekGames[weekID] = append([]int64(nil), gameIDs...)
	}
	return nil
}

func (s memWeeks) SlateGames(_ context.Context, weekID int64) ([]model.Game, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []model.Game
	for _, id := range s.db.weekGames[weekID] {
		if g, ok := s.db.games[id]; ok {
			out = append(out, g)
		}
	}
	return out, nil
}

// setTeam replaces a team's figures in every stored game.
func (db *memDB) setTeam(t model.Team) {
	db.mu.Lock()
	defer db.mu.Unlock()
	for id, g := range db.games {
		if g.Away.ID == t.ID {
			g.Away = t
		}
		if g.Home.ID == t.ID {
			g.Home = t
		}
		db.games[id] = g
	}
}

type memPolls struct{ db *memDB }

func (s memPolls) Exists(_ context.Context, chatID, gameID int64) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, p := range s.db.polls {
		if p.ChatID == chatID && p.GameID == gameID {
			return true, nil
		}
	}
	return false, nil
}

func (s memPolls) InsertIfAbsent(_ context.Context, poll *model.Poll) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.polls[poll.ID]; ok {
		return false, nil
	}
	for _, p := range s.db.polls {
		if p.ChatID == poll.ChatID && p.GameID == poll.GameID {
			return false, nil
		}
	}
	cp := *poll
	cp.IsOpen = true
	s.db.polls[poll.ID] = &cp
	return true, nil
}

func (s memPolls) GetByID(_ context.Context, pollID string) (*model.Poll, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	p, ok := s.db.polls[pollID]
	if !ok {
		return nil, repository.ErrPollNotFound
	}
	cp := *p
	return &cp, nil
}

func (s memPolls) OpenExpired(_ context.Context, chatID int64, now time.Time) ([]*model.Poll, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []*model.Poll
	for _, p := range s.db.polls {
		g := s.db.games[p.GameID]
		if p.ChatID == chatID && p.IsOpen && !g.ScheduledStart.After(now) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s memPolls) MarkClosed(_ context.Context, pollID string) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	p, ok := s.db.polls[pollID]
	if !ok || !p.IsOpen {
		return false, nil
	}
	p.IsOpen = false
	return true, nil
}

type memBets struct{ db *memDB }

func (s memBets) InsertIfAbsent(_ context.Context, bet *model.Bet) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	key := [3]int64{bet.GameID, bet.ChatID, bet.UserID}
	if _, ok := s.db.bets[key]; ok {
		return false, nil
	}
	cp := *bet
	s.db.bets[key] = &cp
	return true, nil
}

type memUsers struct{ db *memDB }

func (s memUsers) EnsureUser(_ context.Context, user *model.User) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.users[user.ID]; ok {
		return false, nil
	}
	cp := *user
	if cp.LanguageCode == "" {
		cp.LanguageCode = repository.DefaultLanguageCode
	}
	s.db.users[user.ID] = &cp
	return true, nil
}

type memGames struct{ db *memDB }

func (s memGames) GetByID(_ context.Context, gameID int64) (*model.Game, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	g, ok := s.db.games[gameID]
	if !ok {
		return nil, repository.ErrGameNotFound
	}
	return &g, nil
}

func (s memGames) CandidateGames(_ context.Context, start, end time.Time) ([]model.Game, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.failWith != nil {
		return nil, s.db.failWith
	}
	var out []model.Game
	for _, g := range s.db.games {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memCache struct {
	mu      sync.Mutex
	entries map[string][]model.Game
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string][]model.Game)}
}

func (c *memCache) Get(_ context.Context, key string) ([]model.Game, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	g, ok := c.entries[key]
	return g, ok, nil
}

func (c *memCache) Put(_ context.Context, key string, games []model.Game, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = games
	return nil
}

type memStandings struct {
	db     *memDB
	week   []*model.WeekStanding
	season []*model.SeasonStanding
}

func (s *memStandings) WeekStandings(_ context.Context, _ int64, _ int) ([]*model.WeekStanding, error) {
	return s.week, nil
}

func (s *memStandings) SeasonStandings(_ context.Context, _ int64) ([]*model.SeasonStanding, error) {
	return s.season, nil
}

func (s *memStandings) CurrentWeekNumber(_ context.Context, chatID int64, today time.Time) (int, error) {
	n := 0
	for _, w := range s.db.weeksOf(chatID) {
		if !w.StartDate.After(today) && w.WeekNumber > n {
			n = w.WeekNumber
		}
	}
	return n, nil
}

// fakeTransport records every call and fails on demand.
type fakeTransport struct {
	mu       sync.Mutex
	nextID   int
	attempts int
	sent     []sentPoll
	closed   []int
	messages []sentMessage
	admins   map[int64][]int64

	// sendErr sees the zero-based attempt number, failed attempts included.
	sendErr  func(chatID int64, call int) error
	closeErr func(chatID int64, localID int) error
	adminErr error
}

type sentPoll struct {
	ChatID   int64
	Question string
	Options  [2]string
	Poll     PublishedPoll
}

type sentMessage struct {
	ChatID int64
	Text   string
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{admins: make(map[int64][]int64)}
}

func (f *fakeTransport) SendPoll(_ context.Context, chatID int64, question string, options [2]string) (PublishedPoll, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	call := f.attempts
	f.attempts++
	if f.sendErr != nil {
		if err := f.sendErr(chatID, call); err != nil {
			return PublishedPoll{}, err
		}
	}
	f.nextID++
	p := PublishedPoll{ID: fmt.Sprintf("poll-%d", f.nextID), LocalID: 1000 + f.nextID}
	f.sent = append(f.sent, sentPoll{ChatID: chatID, Question: question, Options: options, Poll: p})
	return p, nil
}

func (f *fakeTransport) ClosePoll(_ context.Context, chatID int64, localID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closeErr != nil {
		if err := f.closeErr(chatID, localID); err != nil {
			return err
		}
	}
	f.closed = append(f.closed, localID)
	return nil
}

func (f *fakeTransport) GetAdmins(_ context.Context, chatID int64) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.adminErr != nil {
		return nil, f.adminErr
	}
	return f.admins[chatID], nil
}

func (f *fakeTransport) SendMessage(_ context.Context, chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, sentMessage{ChatID: chatID, Text: text})
	return nil
}

func (f *fakeTransport) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func (f *fakeTransport) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.closed)
}

func (f *fakeTransport) texts(chatID int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, m := range f.messages {
		if m.ChatID == chatID {
			out = append(out, m.Text)
		}
	}
	return out
}

func retryable(op string) error {
	return &TransportError{Kind: TransportRetryable, Op: op, Err: fmt.Errorf("timeout")}
}

func chatGone(op string) error {
	return &TransportError{Kind: TransportChatGone, Op: op, Err: fmt.Errorf("chat not found")}
}

// testClock is a mutable instant shared with a league.Clock.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// leagueNoon returns noon league time on the given league date.
func leagueNoon(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 17, 0, 0, 0, time.UTC)
}

func team(id int64, name string, wins, losses int, srs float64) model.Team {
	return model.Team{ID: id, Name: name, Wins: wins, Losses: losses, SRS: srs}
}

func gameIDs(games []model.Game) []int64 {
	ids := make([]int64, len(games))
	for i, g := range games {
		ids[i] = g.ID
	}
	return ids
}

// weekOfGames returns a pool spread over 2024-01-02..2024-01-08 (league dates).
func weekOfGames() []model.Game {
	good1 := team(1, "Celtics", 30, 10, 9.5)
	good2 := team(2, "Nuggets", 28, 12, 5.1)
	good3 := team(3, "Bucks", 27, 13, 3.2)
	bad1 := team(4, "Pistons", 4, 36, -10)
	bad2 := team(5, "Spurs", 6, 34, -8)
	at := func(day, hour int) time.Time { return time.Date(2024, 1, day, hour, 30, 0, 0, time.UTC) }
	return []model.Game{
		{ID: 101, Away: good1, Home: good2, ScheduledStart: at(3, 1)},
		{ID: 102, Away: good3, Home: good1, ScheduledStart: at(4, 0)},
		{ID: 103, Away: bad1, Home: bad2, ScheduledStart: at(5, 1)},
		{ID: 104, Away: good2, Home: good3, ScheduledStart: at(7, 1)},
	}
}
