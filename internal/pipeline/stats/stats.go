package stats

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// These are the types of statistics that we can add. The value is the JSON
// key that will be used for serialization.
type StatType string

const (
	TweetFetches      StatType = "tweet_fetches"
	TweetsReturned    StatType = "tweets_returned"
	ProfileFetches    StatType = "profile_fetches"
	ProfilesReturned  StatType = "profiles_returned"
	SearchQueries     StatType = "search_queries"
	ProviderErrors    StatType = "provider_errors"
	ProviderFallbacks StatType = "provider_fallbacks"
	RateLimitErrors   StatType = "ratelimit_errors"
	PostsRefreshed    StatType = "posts_refreshed"
	KOLsRefreshed     StatType = "kols_refreshed"
	SnapshotsWritten  StatType = "snapshots_written"
	PostsImported     StatType = "posts_imported"
	DuplicatesSkipped StatType = "duplicates_skipped"
)

// AddStat is the message sent by the pipeline for each counter increment.
type AddStat struct {
	Type  StatType
	OrgID string
	Num   uint
}

// Stats stores the counters, grouped per organization.
type Stats struct {
	BootTimeUnix      int64                        `json:"boot_time"`
	LastOperationUnix int64                        `json:"last_operation_time"`
	CurrentTimeUnix   int64                        `json:"current_time"`
	Stats             map[string]map[StatType]uint `json:"stats"`
	sync.Mutex
}

// Collector receives AddStat messages over a channel and folds them into
// Stats. One collector per process.
type Collector struct {
	Stats *Stats
	Chan  chan AddStat
}

// StartCollector starts a goroutine that listens to a channel for AddStat
// messages and updates the stats accordingly.
func StartCollector(bufSize uint) *Collector {
	logrus.Info("Starting stats collector")

	s := &Stats{
		BootTimeUnix: time.Now().Unix(),
		Stats:        make(map[string]map[StatType]uint),
	}
	ch := make(chan AddStat, bufSize)

	go func() {
		for stat := range ch {
			s.Lock()
			s.LastOperationUnix = time.Now().Unix()
			if _, ok := s.Stats[stat.OrgID]; !ok {
				s.Stats[stat.OrgID] = make(map[StatType]uint)
			}
			s.Stats[stat.OrgID][stat.Type] += stat.Num
			s.Unlock()
			logrus.Debugf("Added %d to stat %s for org %s", stat.Num, stat.Type, stat.OrgID)
		}
	}()

	return &Collector{Stats: s, Chan: ch}
}

// Json returns the current statistics as a JSON byte array.
func (c *Collector) Json() ([]byte, error) {
	c.Stats.Lock()
	defer c.Stats.Unlock()
	c.Stats.CurrentTimeUnix = time.Now().Unix()
	return json.Marshal(c.Stats)
}

// Add is a convenience method to add a number to a statistic.
func (c *Collector) Add(orgID string, typ StatType, num uint) {
	if c == nil {
		return
	}
	c.Chan <- AddStat{OrgID: orgID, Type: typ, Num: num}
}
