package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	QueueSize           = prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "mm_queue_size", Help: "current queue size per mode"}, []string{"mode"})
	MatchesTotal        = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "mm_matches_total", Help: "total matches formed"}, []string{"mode"})
	JoinsTotal          = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "mm_joins_total", Help: "queue joins accepted"}, []string{"mode"})
	EvictionsTotal      = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "mm_evictions_total", Help: "idle queue entries evicted"}, []string{"mode"})
	ContestsRecorded    = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "mm_contests_recorded_total", Help: "finished contests applied to ratings"}, []string{"mode"})
	LeaderboardDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "mm_leaderboard_duration_seconds",
		Help:    "leaderboard build latency",
		Buckets: prometheus.DefBuckets,
	})
)

func Init() {
	prometheus.MustRegister(QueueSize, MatchesTotal, JoinsTotal, EvictionsTotal, ContestsRecorded, LeaderboardDuration)
}
