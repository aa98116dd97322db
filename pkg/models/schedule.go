// Copyright 2026 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// RunNowCron is the cron expression used when a Vertex schedule should fire
// immediately.
const RunNowCron = "* * * * *"

// CronSchedule returns the schedule string sent to Vertex AI. Zones other than
// UTC are carried as a TZ= prefix.
func CronSchedule(expr, tz string) string {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		expr = RunNowCron
	}
	if tz == "" || strings.EqualFold(tz, "UTC") {
		return expr
	}
	return fmt.Sprintf("TZ=%s %s", tz, expr)
}

// ParseSchedule parses a standard five field expression, a descriptor such as
// @daily, or either of those with a TZ= or CRON_TZ= prefix.
func ParseSchedule(expr string) (cron.Schedule, error) {
	sched, err := cron.ParseStandard(strings.TrimSpace(expr))
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", expr, err)
	}
	return sched, nil
}

// ScheduleContinuous starts a new DAG run as soon as the previous one ends.
const ScheduleContinuous = "@continuous"

// airflowPresets are the Airflow schedule presets that cron descriptors lack,
// mapped to an equivalent expression. An empty value has no recurring
// activations.
var airflowPresets = map[string]string{
	ScheduleOnce:       "",
	ScheduleContinuous: "",
	"@quarterly":       "0 0 1 */3 *",
}

// ParseAirflowSchedule is ParseSchedule extended with the Airflow presets. The
// @once and @continuous presets yield a nil schedule.
func ParseAirflowSchedule(expr string) (cron.Schedule, error) {
	if alias, ok := airflowPresets[strings.ToLower(strings.TrimSpace(expr))]; ok {
		if alias == "" {
			return nil, nil
		}
		expr = alias
	}
	return ParseSchedule(expr)
}

// NextRun returns the first activation of expr after from. A schedule without
// recurring activations yields the zero time.
func NextRun(expr string, from time.Time) (time.Time, error) {
	if expr == "" {
		return time.Time{}, nil
	}
	sched, err := ParseAirflowSchedule(expr)
	if err != nil {
		return time.Time{}, err
	}
	if sched == nil {
		return time.Time{}, nil
	}
	return sched.Next(from), nil
}
