package api

import (
	"fmt"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/AaronLay10/QuestBox/internal/events"
)

// handleMetrics writes Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "unknown"
	}

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	writeMetric := func(name, mtype, help string, value interface{}, labels string) {
		fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		fmt.Fprintf(w, "# TYPE %s %s\n", name, mtype)
		fmt.Fprintf(w, "%s{%s} %v\n", name, labels, value)
	}

	labels := fmt.Sprintf(`box="%s",instance="%s",version="%s"`, s.boxID, hostname, s.version)

	writeMetric("questbox_uptime_seconds", "gauge",
		"Number of seconds since the box process started", time.Since(s.started).Seconds(), labels)

	writeMetric("questbox_events_total", "counter",
		"Total number of events emitted since startup", events.Total(), labels)

	writeMetric("questbox_ws_clients", "gauge",
		"Number of live event subscribers", events.SubscriberCount(), labels)

	if s.queue != nil {
		writeMetric("questbox_input_queue_depth", "gauge",
			"Input events waiting for the game engine", s.queue.Len(), labels)
		writeMetric("questbox_input_queue_capacity", "gauge",
			"Capacity of the input queue", s.queue.Cap(), labels)
		writeMetric("questbox_input_dropped_total", "counter",
			"Input events dropped because the queue was full", s.queue.Dropped(), labels)
	}

	st, loaded := s.currentStatus()
	active := 0
	if loaded && st.Running {
		active = 1
	}
	writeMetric("questbox_quest_active", "gauge",
		"Whether a quest is being played (1) or not (0)", active, labels)
	if loaded {
		writeMetric("questbox_quest_path_index", "gauge",
			"Index of the current path", st.PathIndex, labels)
		writeMetric("questbox_quest_remaining_seconds", "gauge",
			"Time left on the current path", st.Remaining.Seconds(), labels)
	}

	writeFlags(w, "questbox_dependency_up",
		"Whether a dependency is reachable (1) or not (0)", labels, "dependency", s.runChecks())

	if s.outputs != nil {
		writeFlags(w, "questbox_output_active",
			"Whether an actuator is running an effect (1) or not (0)", labels, "output", s.outputs.Active())
	}
}

// writeFlags writes one gauge line per key, sorted, with the key as the
// value of label. Nothing is written for an empty map.
func writeFlags(w http.ResponseWriter, name, help, labels, label string, flags map[string]bool) {
	if len(flags) == 0 {
		return
	}
	keys := make([]string, 0, len(flags))
	for k := range flags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	fmt.Fprintf(w, "# TYPE %s gauge\n", name)
	for _, k := range keys {
		v := 0
		if flags[k] {
			v = 1
		}
		fmt.Fprintf(w, "%s{%s,%s=\"%s\"} %d\n", name, labels, label, k, v)
	}
}
