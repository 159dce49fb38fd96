// Package simulator drives a running lilypad server with synthetic widget
// traffic: registered commenters, spammy submissions, likes and flag storms.
// It is a load and policy exerciser, not a test suite.
package simulator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

type SimConfig struct {
	NumUsers         int
	NumSites         int
	PagesPerSite     int
	SimulationTime   time.Duration
	CommentFrequency float64 // comments per user per hour
	LikeFrequency    float64
	FlagFrequency    float64
	SpamRate         float64 // fraction of submissions that look like spam
	EngineURL        string
}

type SimulationStats struct {
	mu              sync.RWMutex
	StartTime       time.Time
	TotalRequests   int64
	SuccessRequests int64
	FailedRequests  int64
	RateLimited     int64
	TotalComments   int
	ApprovedCount   int
	PendingCount    int
	SpamCount       int
	TotalLikes      int
	TotalFlags      int
	DuplicateFlags  int
	Latencies       []time.Duration
}

// SimulatedUser is one synthetic commenter with a live session.
type SimulatedUser struct {
	ID       uuid.UUID
	Username string
	Email    string
	Token    string
}

type simulatedSite struct {
	ID    uuid.UUID
	Slugs []string
}

type Simulator struct {
	config   SimConfig
	stats    *SimulationStats
	users    []*SimulatedUser
	sites    []*simulatedSite
	comments []uuid.UUID
	client   *http.Client
	mu       sync.RWMutex
}

func NewSimulator(config SimConfig) *Simulator {
	return &Simulator{
		config: config,
		stats: &SimulationStats{
			StartTime: time.Now(),
			Latencies: make([]time.Duration, 0),
		},
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *Simulator) Run(ctx context.Context) error {
	log.Printf("Starting simulation against %s", s.config.EngineURL)

	if err := s.initialize(ctx); err != nil {
		return fmt.Errorf("initialization failed: %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.simulateActivities(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.reportProgress(ctx)
	}()

	wg.Wait()
	return nil
}

// initialize registers the user population and sets up sites with a spread
// of moderation policies.
func (s *Simulator) initialize(ctx context.Context) error {
	run := uuid.NewString()[:8]
	for i := 0; i < s.config.NumUsers; i++ {
		user := &SimulatedUser{
			Username: fmt.Sprintf("sim_%s_%d", run, i),
			Email:    fmt.Sprintf("sim_%s_%d@example.com", run, i),
		}
		var resp struct {
			Token string `json:"token"`
			User  struct {
				ID uuid.UUID `json:"id"`
			} `json:"user"`
		}
		status, err := s.doJSON(ctx, http.MethodPost, "/user/register", "", map[string]string{
			"username": user.Username,
			"email":    user.Email,
			"password": "simulation-password",
		}, &resp)
		if err != nil || status != http.StatusCreated {
			return fmt.Errorf("register %s: status %d err %v", user.Username, status, err)
		}
		user.ID = resp.User.ID
		user.Token = resp.Token
		s.users = append(s.users, user)
	}
	log.Printf("Registered %d users", len(s.users))

	for i := 0; i < s.config.NumSites; i++ {
		owner := s.users[i%len(s.users)]
		var site struct {
			ID uuid.UUID `json:"id"`
		}
		status, err := s.doJSON(ctx, http.MethodPost, "/sites", owner.Token, map[string]string{
			"name":   fmt.Sprintf("Sim Site %d", i),
			"domain": fmt.Sprintf("site%d-%s.example.com", i, run),
		}, &site)
		if err != nil || status != http.StatusCreated {
			return fmt.Errorf("create site %d: status %d err %v", i, status, err)
		}

		slugs := make([]string, 0, s.config.PagesPerSite)
		for p := 0; p < s.config.PagesPerSite; p++ {
			slugs = append(slugs, fmt.Sprintf("/post-%d", p))
		}
		s.sites = append(s.sites, &simulatedSite{ID: site.ID, Slugs: slugs})

		// Half the sites run with moderation off to produce a mix of
		// approved and queued traffic.
		if i%2 == 1 {
			status, err = s.doJSON(ctx, http.MethodPut, "/sites/policy", owner.Token, map[string]interface{}{
				"siteId":               site.ID.String(),
				"moderationEnabled":    false,
				"autoApproveThreshold": 30,
				"spamFilterEnabled":    true,
				"requireAuth":          true,
			}, nil)
			if err != nil || status != http.StatusOK {
				return fmt.Errorf("update policy for site %d: status %d err %v", i, status, err)
			}
		}
	}
	log.Printf("Created %d sites", len(s.sites))
	return nil
}

func (s *Simulator) simulateActivities(ctx context.Context) {
	perUserPerHour := s.config.CommentFrequency + s.config.LikeFrequency + s.config.FlagFrequency
	totalPerSecond := perUserPerHour * float64(len(s.users)) / 3600.0
	if totalPerSecond <= 0 {
		return
	}
	interval := time.Duration(float64(time.Second) / totalPerSecond)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			user := s.users[rand.Intn(len(s.users))]
			roll := rand.Float64() * perUserPerHour
			switch {
			case roll < s.config.CommentFrequency:
				s.submitComment(ctx, user)
			case roll < s.config.CommentFrequency+s.config.LikeFrequency:
				s.likeComment(ctx, user)
			default:
				s.flagComment(ctx, user)
			}
		}
	}
}

var cleanComments = []string{
	"Great post, learned a lot.",
	"I ran into the same issue last week.",
	"Could you expand on the second section?",
	"Bookmarking this for later.",
	"The example finally made this click for me.",
}

var spamComments = []string{
	"buy now at https://deals.example.com",
	"FREE MONEY click here https://scam.example https://scam2.example https://scam3.example",
	"work from home and make money fast",
	"visit my store for cheap meds",
}

func (s *Simulator) submitComment(ctx context.Context, user *SimulatedUser) {
	site := s.sites[rand.Intn(len(s.sites))]
	slug := site.Slugs[rand.Intn(len(site.Slugs))]

	content := cleanComments[rand.Intn(len(cleanComments))]
	if rand.Float64() < s.config.SpamRate {
		content = spamComments[rand.Intn(len(spamComments))]
	}

	var resp struct {
		ID     uuid.UUID `json:"id"`
		Status string    `json:"status"`
	}
	status, err := s.doJSON(ctx, http.MethodPost, "/comments", user.Token, map[string]string{
		"siteId":   site.ID.String(),
		"pageSlug": slug,
		"content":  content,
	}, &resp)
	if err != nil || status != http.StatusCreated {
		return
	}

	s.stats.mu.Lock()
	s.stats.TotalComments++
	switch resp.Status {
	case "approved":
		s.stats.ApprovedCount++
	case "pending":
		s.stats.PendingCount++
	case "spam":
		s.stats.SpamCount++
	}
	s.stats.mu.Unlock()

	s.mu.Lock()
	s.comments = append(s.comments, resp.ID)
	s.mu.Unlock()
}

func (s *Simulator) pickComment() (uuid.UUID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.comments) == 0 {
		return uuid.Nil, false
	}
	return s.comments[rand.Intn(len(s.comments))], true
}

func (s *Simulator) likeComment(ctx context.Context, user *SimulatedUser) {
	commentID, ok := s.pickComment()
	if !ok {
		return
	}
	status, err := s.doJSON(ctx, http.MethodPost, "/comments/like", user.Token,
		map[string]string{"commentId": commentID.String()}, nil)
	if err == nil && status == http.StatusOK {
		s.stats.mu.Lock()
		s.stats.TotalLikes++
		s.stats.mu.Unlock()
	}
}

func (s *Simulator) flagComment(ctx context.Context, user *SimulatedUser) {
	commentID, ok := s.pickComment()
	if !ok {
		return
	}
	status, err := s.doJSON(ctx, http.MethodPost, "/comments/flag", user.Token,
		map[string]string{"commentId": commentID.String(), "reason": "simulated report"}, nil)
	if err != nil {
		return
	}
	s.stats.mu.Lock()
	switch status {
	case http.StatusOK:
		s.stats.TotalFlags++
	case http.StatusBadRequest:
		s.stats.DuplicateFlags++
	}
	s.stats.mu.Unlock()
}

func (s *Simulator) doJSON(ctx context.Context, method, path, token string, body interface{}, out interface{}) (int, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.config.EngineURL+path, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	latency := time.Since(start)

	s.stats.mu.Lock()
	s.stats.TotalRequests++
	s.stats.Latencies = append(s.stats.Latencies, latency)
	if err != nil {
		s.stats.FailedRequests++
	} else if resp.StatusCode == http.StatusTooManyRequests {
		s.stats.RateLimited++
	} else if resp.StatusCode < 500 {
		s.stats.SuccessRequests++
	} else {
		s.stats.FailedRequests++
	}
	s.stats.mu.Unlock()

	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, err
		}
	} else {
		io.Copy(io.Discard, resp.Body)
	}
	return resp.StatusCode, nil
}

func (s *Simulator) reportProgress(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := s.GetStats()
			log.Printf("requests=%d ok=%d 429=%d comments=%d (approved=%d pending=%d spam=%d) likes=%d flags=%d dup=%d",
				snap.TotalRequests, snap.SuccessRequests, snap.RateLimited,
				snap.TotalComments, snap.ApprovedCount, snap.PendingCount, snap.SpamCount,
				snap.TotalLikes, snap.TotalFlags, snap.DuplicateFlags)
		}
	}
}

// StatsSnapshot is a copyable view of the running totals.
type StatsSnapshot struct {
	TotalRequests   int64
	SuccessRequests int64
	FailedRequests  int64
	RateLimited     int64
	TotalComments   int
	ApprovedCount   int
	PendingCount    int
	SpamCount       int
	TotalLikes      int
	TotalFlags      int
	DuplicateFlags  int
	AverageLatency  time.Duration
}

func (s *Simulator) GetStats() StatsSnapshot {
	s.stats.mu.RLock()
	defer s.stats.mu.RUnlock()

	var avg time.Duration
	if len(s.stats.Latencies) > 0 {
		var total time.Duration
		for _, l := range s.stats.Latencies {
			total += l
		}
		avg = total / time.Duration(len(s.stats.Latencies))
	}

	return StatsSnapshot{
		TotalRequests:   s.stats.TotalRequests,
		SuccessRequests: s.stats.SuccessRequests,
		FailedRequests:  s.stats.FailedRequests,
		RateLimited:     s.stats.RateLimited,
		TotalComments:   s.stats.TotalComments,
		ApprovedCount:   s.stats.ApprovedCount,
		PendingCount:    s.stats.PendingCount,
		SpamCount:       s.stats.SpamCount,
		TotalLikes:      s.stats.TotalLikes,
		TotalFlags:      s.stats.TotalFlags,
		DuplicateFlags:  s.stats.DuplicateFlags,
		AverageLatency:  avg,
	}
}
