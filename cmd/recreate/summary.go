package main

import (
	"recreate/internal/recreate"
	"recreate/internal/store"
)

type sessionSummary struct {
	Session     string         `json:"session"`
	Ticks       int            `json:"ticks"`
	Events      int            `json:"events"`
	Engagements int            `json:"engagements"`
	ByType      map[string]int `json:"by_type"`
	Visible     []string       `json:"visible,omitempty"`
}

func summarize(id string, res *recreate.ReplayResult) sessionSummary {
	s := sessionSummary{Session: id, Ticks: len(res.States), Events: len(res.Events), ByType: map[string]int{}}
	for _, ev := range res.Events {
		s.ByType[ev.Type]++
		if ev.Type == recreate.EventEngage {
			s.Engagements++
		}
	}
	if n := len(res.States); n > 0 {
		for _, a := range res.States[n-1].Platoons() {
			if a.Visibility {
				s.Visible = append(s.Visible, a.Key)
			}
		}
	}
	return s
}

// storeNodes avoids handing the store a typed nil.
func storeNodes(env *environment) store.NodeIndex {
	if env.nodes == nil {
		return nil
	}
	return env.nodes
}
