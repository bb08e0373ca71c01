package playthrough

import "time"

// Config holds configuration for a play-through run.
type Config struct {
	BaseURL    string        // Base URL of the service
	Sessions   int           // Number of independent sessions to play
	Workers    int           // Number of concurrent players
	Timeout    time.Duration // HTTP request timeout
	DrawRate   float64       // Fraction of answers that are draws
	Seed       int64         // Seed for answers; zero seeds from the clock
	OutputFile string        // Where to write the first session's export; empty skips
	Verbose    bool          // Log every answer
}

// Item mirrors a catalog item in API responses.
type Item struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Pair mirrors the pending pair of a view.
type Pair struct {
	Index int  `json:"index"`
	Total int  `json:"total"`
	Left  Item `json:"left"`
	Right Item `json:"right"`
}

// Standing mirrors one ranked row.
type Standing struct {
	Rank   int    `json:"rank"`
	ID     string `json:"id"`
	Name   string `json:"name"`
	Rating int    `json:"rating"`
	Games  int    `json:"games"`
}

// View mirrors the session view returned by the ranking API.
type View struct {
	SessionID string     `json:"sessionId"`
	Status    string     `json:"status"`
	Count     int        `json:"count"`
	K         float64    `json:"k"`
	PairIndex int        `json:"pairIndex"`
	Total     int        `json:"total"`
	Pair      *Pair      `json:"pair"`
	Top       []Standing `json:"top"`
	Final     []Standing `json:"final"`
}

// State mirrors the exported session document.
type State struct {
	Items     []string           `json:"items"`
	Ratings   map[string]float64 `json:"ratings"`
	Games     map[string]int     `json:"games"`
	Count     int                `json:"count"`
	K         float64            `json:"k"`
	Pairs     [][2]string        `json:"pairs"`
	PairIndex int                `json:"pairIndex"`
	Done      bool               `json:"done"`
}

// Result is the outcome of one played session.
type Result struct {
	SessionID string
	Final     []Standing
	Export    []byte
	Answers   int
	Conflicts int
}

// Stats holds run statistics.
type Stats struct {
	SessionsPlayed   int
	SessionsVerified int
	SessionsFailed   int
	Answers          int
	Conflicts        int
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}
