package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"recase/pkg/recase"
)

// loadSearchRequestFromConfig overlays a JSON config on the default search
// request. Unknown keys are rejected so typos do not silently fall back to
// defaults.
func loadSearchRequestFromConfig(path string) (recase.SearchRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return recase.SearchRequest{}, err
	}

	req := recase.DefaultSearchRequest()
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return recase.SearchRequest{}, err
	}
	return req, nil
}

func loadOrDefaultSearchRequest(configPath string) (recase.SearchRequest, error) {
	if configPath == "" {
		return recase.DefaultSearchRequest(), nil
	}
	req, err := loadSearchRequestFromConfig(configPath)
	if err != nil {
		return recase.SearchRequest{}, fmt.Errorf("load config: %w", err)
	}
	return req, nil
}

// overrideFromFlags applies only the flags the user set explicitly, so a
// config value survives unless its flag is on the command line.
func overrideFromFlags(req *recase.SearchRequest, set map[string]bool, flagValue map[string]any) {
	for name := range set {
		v, ok := flagValue[name]
		if !ok {
			continue
		}
		switch name {
		case "words":
			req.Words = v.(string)
		case "heads":
			req.Heads = v.(int)
		case "p-flip":
			req.PFlip = v.(float64)
		case "p-inherit":
			req.PInherit = v.(float64)
		case "cooling":
			req.Cooling = v.(float64)
		case "floor":
			req.Floor = v.(float64)
		case "seed":
			req.Seed = v.(int64)
		case "max-trials":
			req.MaxTrials = v.(int64)
		case "checkpoint-every":
			req.CheckpointEvery = v.(int64)
		case "progress-rate":
			req.ProgressRate = v.(float64)
		case "resume":
			req.Resume = v.(string)
		}
	}
}
