// Package telemetry turns recorded session telemetry into typed replay ticks.
//
// Sessions are JSON lines, one tick per line:
//
//	{"time":0.5,"pause":false,"update":true,
//	 "state":{"uav":{"uav_p_1":{"centroid_pos":[1.5,-2],"casualties":["v2"],"selected":true,"n_vehicles":3}},
//	          "ugv":{...}}}
//
// Only the paths above are read; anything else on a line is ignored.
package telemetry

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/tidwall/gjson"

	"recreate/internal/config"
	"recreate/internal/geom"
	"recreate/internal/recreate"
)

var ErrMalformed = errors.New("malformed telemetry")

const maxLine = 4 << 20

// LoadFile reads a JSONL session file.
func LoadFile(path string) ([]recreate.Tick, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open telemetry %s: %w", path, err)
	}
	defer f.Close()
	ticks, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ticks, nil
}

// Parse reads ticks from r. Blank lines are skipped.
func Parse(r io.Reader) ([]recreate.Tick, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLine)

	var ticks []recreate.Tick
	line := 0
	for sc.Scan() {
		line++
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}
		t, err := ParseTick(raw)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		ticks = append(ticks, t)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read telemetry: %w", err)
	}
	return ticks, nil
}

// ParseTick decodes one tick. A missing update flag means the tick carries
// fresh data; a missing pause flag means the session is running.
func ParseTick(raw string) (recreate.Tick, error) {
	if !gjson.Valid(raw) {
		return recreate.Tick{}, fmt.Errorf("%w: invalid json", ErrMalformed)
	}
	doc := gjson.Parse(raw)
	if !doc.IsObject() {
		return recreate.Tick{}, fmt.Errorf("%w: tick is not an object", ErrMalformed)
	}

	t := recreate.Tick{
		Time:   doc.Get("time").Float(),
		Pause:  doc.Get("pause").Bool(),
		Update: true,
	}
	if u := doc.Get("update"); u.Exists() {
		t.Update = u.Bool()
	}

	for _, vt := range []config.VehicleType{config.UAV, config.UGV} {
		platoons, err := parsePlatoons(doc.Get("state."+string(vt)), vt)
		if err != nil {
			return recreate.Tick{}, err
		}
		t.Blue.Platoons = append(t.Blue.Platoons, platoons...)
	}
	return t, nil
}

func parsePlatoons(section gjson.Result, vt config.VehicleType) ([]recreate.PlatoonState, error) {
	if !section.Exists() || section.Type == gjson.Null {
		return nil, nil
	}
	if !section.IsObject() {
		return nil, fmt.Errorf("%w: state.%s is not an object", ErrMalformed, vt)
	}

	var (
		out []recreate.PlatoonState
		err error
	)
	section.ForEach(func(key, value gjson.Result) bool {
		var pos geom.Vec2
		pos, err = parsePos(value.Get("centroid_pos"))
		if err != nil {
			err = fmt.Errorf("%s: %w", key.String(), err)
			return false
		}
		p := recreate.PlatoonState{
			Key:         key.String(),
			VehicleType: vt,
			CentroidPos: pos,
			Selected:    value.Get("selected").Bool(),
			NVehicles:   int(value.Get("n_vehicles").Int()),
		}
		for _, c := range value.Get("casualties").Array() {
			p.Casualties = append(p.Casualties, c.String())
		}
		out = append(out, p)
		return true
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(out, func(a, b recreate.PlatoonState) int {
		return recreate.ComparePlatoonKeys(a.Key, b.Key)
	})
	return out, nil
}

// parsePos accepts [x, y] or {"x": x, "y": y}.
func parsePos(v gjson.Result) (geom.Vec2, error) {
	switch {
	case v.IsArray():
		arr := v.Array()
		if len(arr) < 2 {
			return geom.Vec2{}, fmt.Errorf("%w: centroid_pos needs two coordinates", ErrMalformed)
		}
		return geom.Vec2{X: arr[0].Float(), Y: arr[1].Float()}, nil
	case v.IsObject():
		x, y := v.Get("x"), v.Get("y")
		if !x.Exists() || !y.Exists() {
			return geom.Vec2{}, fmt.Errorf("%w: centroid_pos needs x and y", ErrMalformed)
		}
		return geom.Vec2{X: x.Float(), Y: y.Float()}, nil
	}
	return geom.Vec2{}, fmt.Errorf("%w: missing centroid_pos", ErrMalformed)
}
