package models

import (
	"fmt"
	"strings"
)

// Curriculum selects which grading scheme applies to a class. A class's
// curriculum is fixed at sheet-load time; mixing schemes within one class is
// not possible.
type Curriculum string

const (
	// CurriculumCompetency is the competency-based scheme (CBC): ordinal
	// performance levels per strand instead of numeric scores.
	CurriculumCompetency Curriculum = "cbc"
	// CurriculumCertificate is the IGCSE-style scheme with separate
	// coursework and exam components.
	CurriculumCertificate Curriculum = "igcse"
	// CurriculumStandard is traditional 0-100 numeric grading.
	CurriculumStandard Curriculum = "standard"
)

// ParseCurriculum validates a raw curriculum value. It fails loudly rather
// than defaulting: an unset or unknown curriculum must block the grading
// workflow until an administrator fixes the class record.
func ParseCurriculum(raw string) (Curriculum, error) {
	switch Curriculum(strings.ToLower(strings.TrimSpace(raw))) {
	case CurriculumCompetency:
		return CurriculumCompetency, nil
	case CurriculumCertificate:
		return CurriculumCertificate, nil
	case CurriculumStandard:
		return CurriculumStandard, nil
	default:
		return "", fmt.Errorf("unrecognized curriculum type %q (valid: cbc, igcse, standard)", raw)
	}
}

// CurriculumInfo labels a curriculum for display.
type CurriculumInfo struct {
	DisplayName string `json:"display_name"`
	ColorTag    string `json:"color_tag"`
}

// Info returns display metadata for the curriculum.
func (c Curriculum) Info() CurriculumInfo {
	switch c {
	case CurriculumCompetency:
		return CurriculumInfo{DisplayName: "CBC", ColorTag: "green"}
	case CurriculumCertificate:
		return CurriculumInfo{DisplayName: "IGCSE", ColorTag: "purple"}
	case CurriculumStandard:
		return CurriculumInfo{DisplayName: "Standard", ColorTag: "blue"}
	default:
		return CurriculumInfo{DisplayName: strings.ToUpper(string(c)), ColorTag: "gray"}
	}
}

// PerformanceLevel is the ordinal mark used by the competency curriculum:
// EM (emerging) < AP (approaching) < PR (proficient) < EX (exceeding).
type PerformanceLevel string

const (
	LevelEmerging    PerformanceLevel = "EM"
	LevelApproaching PerformanceLevel = "AP"
	LevelProficient  PerformanceLevel = "PR"
	LevelExceeding   PerformanceLevel = "EX"
)

// Ordinal returns the rank of the level, or -1 for an invalid value.
func (p PerformanceLevel) Ordinal() int {
	switch p {
	case LevelEmerging:
		return 0
	case LevelApproaching:
		return 1
	case LevelProficient:
		return 2
	case LevelExceeding:
		return 3
	default:
		return -1
	}
}

// Valid reports whether the level is one of the four known marks.
func (p PerformanceLevel) Valid() bool {
	return p.Ordinal() >= 0
}

// GradeBoundary maps a minimum percentage to a letter grade.
type GradeBoundary struct {
	Letter     string
	MinPercent float64
}

// StandardBoundaries is the default boundary table for numeric grading.
var StandardBoundaries = []GradeBoundary{
	{"A", 80}, {"B+", 75}, {"B", 70}, {"C+", 65}, {"C", 60},
	{"D+", 55}, {"D", 50}, {"E", 0},
}

// CertificateBoundaries is the IGCSE letter scale.
var CertificateBoundaries = []GradeBoundary{
	{"A*", 90}, {"A", 80}, {"B", 70}, {"C", 60}, {"D", 50},
	{"E", 40}, {"F", 30}, {"G", 20}, {"U", 0},
}

// LetterFor resolves the letter grade for a percentage against a boundary
// table. Boundaries must be ordered from highest to lowest minimum.
func LetterFor(boundaries []GradeBoundary, percent float64) string {
	for _, b := range boundaries {
		if percent >= b.MinPercent {
			return b.Letter
		}
	}
	if len(boundaries) == 0 {
		return ""
	}
	return boundaries[len(boundaries)-1].Letter
}
