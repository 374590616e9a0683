package models

// DemoWorkoutName is the display name of the seeded push-day workout.
const DemoWorkoutName = "Push Day (Strength)"

// DemoExercises returns a fresh copy of the push-day template. The server
// seeds it as the "active" workout and the focus session falls back to it
// when the backend cannot be reached.
func DemoExercises() []ExerciseSets {
	return []ExerciseSets{
		{ID: "ex-1", Name: "Bench Press", Sets: []Set{
			{ID: "s-1", WeightKg: 80, Reps: 5},
			{ID: "s-2", WeightKg: 80, Reps: 5},
			{ID: "s-3", WeightKg: 80, Reps: 5},
		}},
		{ID: "ex-2", Name: "Incline Dumbbell Press", Sets: []Set{
			{ID: "s-4", WeightKg: 30, Reps: 10},
			{ID: "s-5", WeightKg: 30, Reps: 10},
		}},
		{ID: "ex-3", Name: "Triceps Pushdown", Sets: []Set{
			{ID: "s-6", WeightKg: 35, Reps: 12},
			{ID: "s-7", WeightKg: 35, Reps: 12},
		}},
	}
}
