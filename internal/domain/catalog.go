package domain

import (
	"fmt"
	"strings"
)

// Scene is a named role-play setting that parameterizes the system prompt.
type Scene string

const (
	SceneRestaurant      Scene = "restaurant"
	SceneHotel           Scene = "hotel"
	SceneShopping        Scene = "shopping"
	SceneAirport         Scene = "airport"
	SceneDoctor          Scene = "doctor"
	SceneJobInterview    Scene = "job_interview"
	SceneMakingFriends   Scene = "making_friends"
	ScenePublicTransport Scene = "public_transport"
)

// SceneDescriptions maps each supported scene to its role-play setting text.
var SceneDescriptions = map[Scene]string{
	SceneRestaurant:      "You are at a restaurant ordering food and chatting with the waiter/waitress.",
	SceneHotel:           "You are checking into a hotel and talking with the receptionist.",
	SceneShopping:        "You are shopping for clothes and asking questions to a shop assistant.",
	SceneAirport:         "You are at the airport asking for information about your flight.",
	SceneDoctor:          "You are visiting a doctor and explaining your symptoms.",
	SceneJobInterview:    "You are being interviewed for a job position.",
	SceneMakingFriends:   "You are meeting someone new and trying to make friends.",
	ScenePublicTransport: "You are asking for directions on public transportation.",
}

// Scenes returns the supported scenes in a stable order.
func Scenes() []Scene {
	return []Scene{
		SceneRestaurant, SceneHotel, SceneShopping, SceneAirport,
		SceneDoctor, SceneJobInterview, SceneMakingFriends, ScenePublicTransport,
	}
}

// ParseScene validates a scene name against the supported catalog.
func ParseScene(s string) (Scene, error) {
	scene := Scene(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := SceneDescriptions[scene]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownScene, s)
	}
	return scene, nil
}

// Level is an ordinal learner skill tier used to calibrate prompt complexity.
type Level string

const (
	LevelBeginner     Level = "beginner"
	LevelIntermediate Level = "intermediate"
	LevelAdvanced     Level = "advanced"
)

// Levels returns the proficiency levels in ascending order.
func Levels() []Level {
	return []Level{LevelBeginner, LevelIntermediate, LevelAdvanced}
}

// ParseLevel validates a proficiency level name.
func ParseLevel(s string) (Level, error) {
	level := Level(strings.ToLower(strings.TrimSpace(s)))
	switch level {
	case LevelBeginner, LevelIntermediate, LevelAdvanced:
		return level, nil
	}
	return "", fmt.Errorf("unknown proficiency level %q", s)
}

// SupportedLanguages lists the languages the generation service handles well
// enough for tutoring. Both target and native languages come from this set.
var SupportedLanguages = []string{
	"Spanish", "French", "German", "Italian", "Portuguese",
	"Russian", "Japanese", "Chinese", "Korean", "Arabic",
	"Hindi", "Dutch", "Swedish", "Turkish", "Polish",
}

// ParseLanguage validates a language name, case-insensitively, and returns
// its canonical form.
func ParseLanguage(s string) (string, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for _, lang := range SupportedLanguages {
		if strings.ToLower(lang) == want {
			return lang, nil
		}
	}
	return "", fmt.Errorf("unsupported language %q", s)
}
