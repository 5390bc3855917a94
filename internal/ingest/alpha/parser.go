// Package alpha imports Alpha Progression CSV exports as exercise history.
package alpha

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/claude/setlog/internal/models"
)

var (
	// "Session Name";"2026-02-19 4:54 h";"1:02 hr"
	sessionHeaderRe = regexp.MustCompile(`^"(.+)";"(\d{4}-\d{2}-\d{2}\s+\d+:\d+)\s+h";"(.+)"$`)

	// "1. Exercise Name · Equipment · 8 reps[· modifiers]"[;"warmup info"]
	exerciseHeaderRe = regexp.MustCompile(`^"(\d+)\.\s+(.+?)(?:\s+·\s+(\S.*?))?\s+·\s+(\d+)\s+reps(.*?)"(?:;"(.+)")?$`)

	// 1;115;8;1
	setDataRe = regexp.MustCompile(`^(\d+);(.+);(\d+);(.+)$`)

	// WU1 · 37,5 kg · 9 reps
	warmupRe = regexp.MustCompile(`WU(\d+)\s+·\s+(.+?)\s+kg\s+·\s+(\d+)\s+reps`)

	columnHeader = "#;KG;REPS;RIR"
)

// parser accumulates sessions while scanning an export line by line.
type parser struct {
	sessions []models.AlphaSession
	session  *models.AlphaSession
	exercise *models.AlphaExercise
}

func (p *parser) closeExercise() {
	if p.exercise != nil {
		p.session.Exercises = append(p.session.Exercises, *p.exercise)
		p.exercise = nil
	}
}

func (p *parser) closeSession() {
	if p.session == nil {
		return
	}
	p.closeExercise()
	p.sessions = append(p.sessions, *p.session)
	p.session = nil
}

func (p *parser) line(line string) error {
	switch {
	case line == "":
		// Blank lines separate sessions.
		p.closeSession()

	case line == columnHeader:

	case sessionHeaderRe.MatchString(line):
		m := sessionHeaderRe.FindStringSubmatch(line)
		p.closeSession()
		date, err := parseSessionDate(m[2])
		if err != nil {
			return err
		}
		p.session = &models.AlphaSession{Name: m[1], Date: date, Duration: m[3]}

	case exerciseHeaderRe.MatchString(line):
		m := exerciseHeaderRe.FindStringSubmatch(line)
		if p.session == nil {
			return fmt.Errorf("exercise without session: %q", line)
		}
		p.closeExercise()
		num, _ := strconv.Atoi(m[1])
		target, _ := strconv.Atoi(m[4])
		p.exercise = &models.AlphaExercise{
			Number:     num,
			Name:       strings.TrimSpace(m[2]),
			Equipment:  strings.TrimSpace(m[3]),
			TargetReps: target,
			Sets:       parseWarmups(m[6]),
		}

	case setDataRe.MatchString(line):
		m := setDataRe.FindStringSubmatch(line)
		if p.exercise == nil {
			return fmt.Errorf("set data without exercise: %q", line)
		}
		num, _ := strconv.Atoi(m[1])
		weight, bw := parseWeight(m[2])
		reps, _ := strconv.Atoi(m[3])
		p.exercise.Sets = append(p.exercise.Sets, models.AlphaSet{
			Number:           num,
			WeightKg:         weight,
			IsBodyweightPlus: bw,
			Reps:             reps,
			RIR:              parseEuropeanFloat(m[4]),
		})
	}
	// Anything else is notes or metadata.
	return nil
}

// Parse reads an Alpha Progression CSV export and returns its sessions in
// file order.
func Parse(r io.Reader) ([]models.AlphaSession, error) {
	p := &parser{}
	scanner := bufio.NewScanner(r)
	n := 0
	for scanner.Scan() {
		n++
		if err := p.line(strings.TrimSpace(scanner.Text())); err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading export: %w", err)
	}
	p.closeSession()
	return p.sessions, nil
}

// parseSessionDate parses "2026-02-19 4:54" or "2026-02-19 16:54".
func parseSessionDate(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02 3:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse session date %q", s)
}

// parseWarmups extracts warm-up sets from the second header field, e.g.
// "WU1 · 37,5 kg · 9 reps<br>WU2 · 72,5 kg · 7 reps".
func parseWarmups(s string) []models.AlphaSet {
	if s == "" {
		return nil
	}
	var sets []models.AlphaSet
	for _, part := range strings.Split(s, "<br>") {
		m := warmupRe.FindStringSubmatch(part)
		if m == nil {
			continue
		}
		num, _ := strconv.Atoi(m[1])
		weight, bw := parseWeight(m[2])
		reps, _ := strconv.Atoi(m[3])
		sets = append(sets, models.AlphaSet{
			Number:           num,
			WeightKg:         weight,
			IsBodyweightPlus: bw,
			Reps:             reps,
			IsWarmup:         true,
		})
	}
	return sets
}

// parseWeight handles European decimals and bodyweight-plus notation:
// "+35" is (35, true), "102,5" is (102.5, false).
func parseWeight(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, "+"); ok {
		return parseEuropeanFloat(rest), true
	}
	return parseEuropeanFloat(s), false
}

func parseEuropeanFloat(s string) float64 {
	f, _ := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", "."), 64)
	return f
}
