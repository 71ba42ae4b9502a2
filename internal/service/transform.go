package service

import (
	"fmt"
	"math"

	"fitforge/coach-app/internal/domain"
	"fitforge/coach-app/internal/hevy"
)

// Pure transformations between generated programs and the Hevy API schema,
// plus the algorithmic week-variant derivations. No I/O here.

// ToHevyRoutineRequest maps a generated program into the Hevy routine
// creation schema. Absent optional values become the explicit null/zero/
// empty-string sentinels the API expects.
func ToHevyRoutineRequest(program domain.GeneratedProgram) *hevy.CreateRoutineRequest {
	req := &hevy.CreateRoutineRequest{
		Routine: hevy.CreateRoutine{
			Title:     program.Title,
			FolderID:  nil,
			Notes:     program.Notes,
			Exercises: make([]hevy.CreateExercise, 0, len(program.Exercises)),
		},
	}

	for _, ex := range program.Exercises {
		out := hevy.CreateExercise{
			ExerciseTemplateID: ex.ExerciseTemplateID,
			SupersetID:         ex.SupersetID,
			RestSeconds:        ex.RestSeconds,
			Notes:              ex.Notes,
			Sets:               make([]hevy.CreateSet, 0, len(ex.Sets)),
		}
		for _, set := range ex.Sets {
			hs := hevy.CreateSet{
				Type:     string(set.Type),
				WeightKg: set.WeightKg,
				Reps:     set.Reps,
			}
			if set.RepRange != nil {
				hs.RepRange = &hevy.RepRange{Start: set.RepRange.Start, End: set.RepRange.End}
			}
			out.Sets = append(out.Sets, hs)
		}
		req.Routine.Exercises = append(req.Routine.Exercises, out)
	}
	return req
}

// ValidateExerciseIDs checks every exercise in the program against the
// available id set. InvalidIDs holds the offending ids in order of first
// appearance.
func ValidateExerciseIDs(program domain.GeneratedProgram, available map[string]struct{}) (valid bool, invalidIDs []string) {
	seen := make(map[string]struct{})
	for _, ex := range program.Exercises {
		if _, ok := available[ex.ExerciseTemplateID]; ok {
			continue
		}
		if _, dup := seen[ex.ExerciseTemplateID]; dup {
			continue
		}
		seen[ex.ExerciseTemplateID] = struct{}{}
		invalidIDs = append(invalidIDs, ex.ExerciseTemplateID)
	}
	return len(invalidIDs) == 0, invalidIDs
}

// ApplyProgressiveOverload derives the week-N variant of a program by
// scaling working-set weight and shifting target reps according to the
// progression scheme. Weight rounds to the nearest 0.5 kg; reps and rep
// range bounds never drop below 1.
func ApplyProgressiveOverload(base domain.GeneratedProgram, week int, progression domain.ProgressionType) domain.GeneratedProgram {
	if week < 1 {
		week = 1
	}
	multiplier, repOffset := progressionFactors(week, progression)

	out := base
	out.Title = fmt.Sprintf("%s - Week %d", base.Title, week)
	out.Exercises = make([]domain.RoutineExercise, len(base.Exercises))
	for i, ex := range base.Exercises {
		scaled := ex
		scaled.Sets = make([]domain.ExerciseSet, len(ex.Sets))
		for j, set := range ex.Sets {
			scaled.Sets[j] = scaleSet(set, multiplier, repOffset)
		}
		out.Exercises[i] = scaled
	}
	return out
}

// progressionFactors returns the weight multiplier and rep offset for a week
// under the given scheme.
func progressionFactors(week int, progression domain.ProgressionType) (multiplier float64, repOffset int) {
	switch progression {
	case domain.ProgressionUndulating:
		// 3-week heavy / light / medium wave.
		switch (week - 1) % 3 {
		case 0: // heavy
			return 1.05, -2
		case 1: // light
			return 0.90, 2
		default: // medium
			return 1.0, 0
		}
	case domain.ProgressionBlock:
		// 4-week blocks: hypertrophy, then strength, then power.
		switch ((week - 1) / 4) % 3 {
		case 0: // hypertrophy
			return 1.0, 2
		case 1: // strength
			return 1.10, -3
		default: // power
			return 1.20, -5
		}
	default: // linear
		return 1.0 + 0.025*float64(week-1), 0
	}
}

func scaleSet(set domain.ExerciseSet, multiplier float64, repOffset int) domain.ExerciseSet {
	if set.Type != domain.SetTypeNormal {
		return set
	}

	out := set
	if set.WeightKg != nil {
		w := roundToHalf(*set.WeightKg * multiplier)
		out.WeightKg = &w
	}
	if set.Reps != nil {
		r := floorAtOne(*set.Reps + repOffset)
		out.Reps = &r
	}
	if set.RepRange != nil {
		out.RepRange = &domain.RepRange{
			Start: floorAtOne(set.RepRange.Start + repOffset),
			End:   floorAtOne(set.RepRange.End + repOffset),
		}
	}
	return out
}

// CreateDeloadRoutine derives a recovery-week variant: only normal sets are
// kept, the first ~60% of them survive, weight drops 30%, reps drop 20%,
// rest grows 50%.
func CreateDeloadRoutine(base domain.GeneratedProgram) domain.GeneratedProgram {
	out := base
	out.Title = base.Title + " - Deload"
	if out.Notes != "" {
		out.Notes += "\n"
	}
	out.Notes += "Deload week: reduced volume and intensity for recovery."

	out.Exercises = make([]domain.RoutineExercise, 0, len(base.Exercises))
	for _, ex := range base.Exercises {
		normal := make([]domain.ExerciseSet, 0, len(ex.Sets))
		for _, set := range ex.Sets {
			if set.Type == domain.SetTypeNormal {
				normal = append(normal, set)
			}
		}
		if len(normal) == 0 {
			continue
		}

		keep := int(math.Ceil(float64(len(normal)) * 0.6))
		deload := ex
		deload.Sets = make([]domain.ExerciseSet, 0, keep)
		for _, set := range normal[:keep] {
			ds := set
			if set.WeightKg != nil {
				w := roundToHalf(*set.WeightKg * 0.7)
				ds.WeightKg = &w
			}
			if set.Reps != nil {
				r := floorAtOne(int(math.Floor(float64(*set.Reps) * 0.8)))
				ds.Reps = &r
			}
			if set.RepRange != nil {
				ds.RepRange = &domain.RepRange{
					Start: floorAtOne(int(math.Floor(float64(set.RepRange.Start) * 0.8))),
					End:   floorAtOne(int(math.Floor(float64(set.RepRange.End) * 0.8))),
				}
			}
			deload.Sets = append(deload.Sets, ds)
		}
		if ex.RestSeconds != nil {
			rest := int(float64(*ex.RestSeconds) * 1.5)
			deload.RestSeconds = &rest
		}
		out.Exercises = append(out.Exercises, deload)
	}
	return out
}

func roundToHalf(x float64) float64 {
	return math.Round(x*2) / 2
}

func floorAtOne(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
