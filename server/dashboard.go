// Package server hosts the optional live monitoring dashboard: a single
// page, pushed to over one websocket per client, showing the running
// simulation's convergence telemetry (day index, running quality,
// firehose depth) in place of the teacher's grid-world value function.
package server

import (
	"context"
	"html/template"
	"log"
	"strconv"
	"time"

	channerics "github.com/niceyeti/channerics/channels"

	"simsom/engine"
	"simsom/server/fastview"
)

func itoa(i int) string { return strconv.Itoa(i) }

func ftoa(f float64) string { return strconv.FormatFloat(f, 'f', 3, 64) }

// statsViewModel is telemetry shaped for direct template/ele-update
// consumption: every field already formatted as the string that will
// become a textContent update.
type statsViewModel struct {
	Day            string
	SimTime        string
	FirehoseDepth  string
	RunningQuality string
	Converged      string
}

// convertSnapshot is the ViewBuilder's DataModel->ViewModel function
// (engine.Snapshot -> statsViewModel), mirroring cell_views.Convert's
// role in root_view.NewRootView.
func convertSnapshot(s engine.Snapshot) statsViewModel {
	converged := "false"
	if s.Converged {
		converged = "true"
	}
	return statsViewModel{
		Day:            itoa(s.Day),
		SimTime:        ftoa(s.SimTime),
		FirehoseDepth:  itoa(s.FirehoseDepth),
		RunningQuality: ftoa(s.RunningQuality),
		Converged:      converged,
	}
}

// StatsView is a single fastview.ViewComponent rendering the telemetry
// fields as plain text spans, each keyed by a stable element id so the
// client's websocket bootstrap script (see root_view's template) can
// patch them in place.
type StatsView struct {
	updates <-chan []fastview.EleUpdate
}

// NewStatsView wires a StatsView off of a statsViewModel channel,
// exactly as cell_views.NewValueFunction wires off a [][]Cell channel.
func NewStatsView(done <-chan struct{}, models <-chan statsViewModel) fastview.ViewComponent {
	sv := &StatsView{}
	sv.updates = channerics.Convert(done, models, sv.onUpdate)
	return sv
}

func (sv *StatsView) Updates() <-chan []fastview.EleUpdate {
	return sv.updates
}

func (sv *StatsView) onUpdate(vm statsViewModel) []fastview.EleUpdate {
	text := func(eleID, value string) fastview.EleUpdate {
		return fastview.EleUpdate{EleId: eleID, Ops: []fastview.Op{{Key: "textContent", Value: value}}}
	}
	return []fastview.EleUpdate{
		text("stat-day", vm.Day),
		text("stat-simtime", vm.SimTime),
		text("stat-firehose-depth", vm.FirehoseDepth),
		text("stat-running-quality", vm.RunningQuality),
		text("stat-converged", vm.Converged),
	}
}

// Parse adds the stats panel markup to the parent template.
func (sv *StatsView) Parse(t *template.Template) (name string, err error) {
	name = "statsview"
	_, err = t.Parse(`{{ define "` + name + `" }}
		<div id="stats-panel" style="font-family:monospace; padding:20px;">
			<h2>SimSoM telemetry</h2>
			<p>day: <span id="stat-day">0</span></p>
			<p>sim time: <span id="stat-simtime">0</span></p>
			<p>firehose depth: <span id="stat-firehose-depth">0</span></p>
			<p>running quality: <span id="stat-running-quality">0</span></p>
			<p>converged: <span id="stat-converged">false</span></p>
		</div>
	{{ end }}`)
	return
}

// RootView is the dashboard's index.html: the container for every view
// component plus the single fanned-in ele-update channel the websocket
// client publishes from. Grounded on the teacher's root_view.RootView.
type RootView struct {
	views   []fastview.ViewComponent
	updates <-chan []fastview.EleUpdate
}

// NewRootView builds the dashboard's views off of telemetry's Stream,
// following the same WithContext/WithModel/WithView/Build wiring the
// teacher's NewRootView uses for [][][][]State.
func NewRootView(ctx context.Context, telemetry *engine.Telemetry, pollRate time.Duration) *RootView {
	snapshots := telemetry.Stream(ctx.Done(), pollRate)

	views, err := fastview.NewViewBuilder[engine.Snapshot, statsViewModel]().
		WithContext(ctx).
		WithModel(snapshots, convertSnapshot).
		WithView(func(done <-chan struct{}, models <-chan statsViewModel) fastview.ViewComponent {
			return NewStatsView(done, models)
		}).
		Build()
	if err != nil {
		log.Fatal(err)
	}

	return &RootView{
		views:   views,
		updates: fanIn(ctx.Done(), views),
	}
}

// Updates returns the main ele-update channel for all the views.
func (rv *RootView) Updates() <-chan []fastview.EleUpdate {
	return rv.updates
}

// Parse builds the main page's template, including the websocket
// bootstrap script every view's ele-updates are patched through.
func (rv *RootView) Parse(parent *template.Template) (name string, err error) {
	viewTemplates := []string{}
	for _, vc := range rv.views {
		tname, parseErr := vc.Parse(parent)
		if parseErr != nil {
			return "", parseErr
		}
		viewTemplates = append(viewTemplates, tname)
	}

	var bodySpec string
	for _, tname := range viewTemplates {
		bodySpec += `{{ template "` + tname + `" . }}`
	}

	name = "mainpage"
	indexTemplate := `
	{{ define "` + name + `" }}
	<!DOCTYPE html>
	<html>
		<head>
			<link rel="icon" href="data:,">
			<script>
				const ws = new WebSocket("ws://" + window.location.host + "/ws");
				ws.onopen = function () { console.log("dashboard socket opened") };
				ws.onerror = function (event) { console.log("dashboard socket error: ", event) };
				ws.onmessage = function (event) {
					const items = JSON.parse(event.data)
					for (const update of items) {
						const ele = document.getElementById(update.EleId)
						if (!ele) { continue }
						for (const op of update.Ops) {
							if (op.Key === "textContent") {
								ele.textContent = op.Value;
							} else {
								ele.setAttribute(op.Key, op.Value)
							}
						}
					}
				}
			</script>
		</head>
		<body>
		` + bodySpec + `
		</body>
	</html>
	{{ end }}
	`
	_, err = parent.Parse(indexTemplate)
	return
}

// fanIn aggregates the views' ele-update channels into a single channel,
// throttling output so bursty, simultaneous view updates collapse into
// one websocket write (ported from root_view.go's fanIn/batchify).
func fanIn(done <-chan struct{}, views []fastview.ViewComponent) <-chan []fastview.EleUpdate {
	inputs := make([]<-chan []fastview.EleUpdate, len(views))
	for i, view := range views {
		inputs[i] = view.Updates()
	}
	return batchify(done, channerics.Merge(done, inputs...), time.Millisecond*20)
}

// batchify batches within the passed time frame before sending,
// overwriting previously received values for the same ele-id so only the
// latest value per id is sent.
func batchify(done <-chan struct{}, source <-chan []fastview.EleUpdate, rate time.Duration) <-chan []fastview.EleUpdate {
	output := make(chan []fastview.EleUpdate)

	go func() {
		defer close(output)

		data := map[string]fastview.EleUpdate{}
		last := time.Now()
		for updates := range channerics.OrDone(done, source) {
			for _, update := range updates {
				data[update.EleId] = update
			}

			if time.Since(last) > rate && len(updates) > 0 {
				select {
				case output <- slicedVals(data):
					data = map[string]fastview.EleUpdate{}
					last = time.Now()
				case <-done:
					return
				}
			}
		}
	}()

	return output
}

func slicedVals[T1 comparable, T2 any](mp map[T1]T2) (sliced []T2) {
	for _, v := range mp {
		sliced = append(sliced, v)
	}
	return
}
