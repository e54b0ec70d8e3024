// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package mirror

import (
	"context"
	"errors"
)

// PlanItem is a document that a mirror run would handle.
type PlanItem struct {
	Path   string `json:"path" yaml:"path"` // relative to the output directory
	Name   string `json:"name" yaml:"name"`
	URL    string `json:"url" yaml:"url"`
	Exists bool   `json:"exists" yaml:"exists"`
}

// Plan is the result of a dry run.
type Plan struct {
	Folders int          `json:"folders" yaml:"folders"`
	Items   []PlanItem   `json:"items" yaml:"items"`
	Failed  []NodeResult `json:"failed,omitempty" yaml:"failed,omitempty"`
}

// PlanMirror walks the listing pages like Mirror but creates no
// directories and downloads no documents.
func PlanMirror(ctx context.Context, sess *Session, job Job, cfg Settings) (*Plan, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if sess == nil {
		return nil, errors.New("mirror: nil session")
	}
	job, cfg = applyDefaults(job, cfg)

	w := newWalker(sess, job, cfg, nil)
	w.plan = &Plan{}
	w.run(ctx)
	w.plan.Folders = w.summary.Folders

	if err := ctx.Err(); err != nil {
		return w.plan, err
	}
	return w.plan, nil
}

// ToBeDownloaded returns the items a run would fetch given update mode.
func (p *Plan) ToBeDownloaded(update bool) []PlanItem {
	if !update {
		return p.Items
	}
	var out []PlanItem
	for _, it := range p.Items {
		if !it.Exists {
			out = append(out, it)
		}
	}
	return out
}
