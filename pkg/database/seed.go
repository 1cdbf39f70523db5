package database

import (
	"log"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"placement_backend/internal/model"
)

func choices(correct int, texts ...string) []model.Choice {
	out := make([]model.Choice, len(texts))
	for i, t := range texts {
		out[i] = model.Choice{Text: t, IsCorrect: i == correct}
	}
	return out
}

func ordering(texts ...string) []model.OrderingItem {
	out := make([]model.OrderingItem, len(texts))
	for i, t := range texts {
		out[i] = model.OrderingItem{Text: t, CorrectPosition: i + 1}
	}
	return out
}

func pairs(kv ...string) []model.MatchPair {
	out := make([]model.MatchPair, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, model.MatchPair{LeftText: kv[i], RightText: kv[i+1]})
	}
	return out
}

func truth(b bool) *bool { return &b }

func sampleBank() []model.Assessment {
	return []model.Assessment{
		{
			Title: "Einstufungstest A1",
			Level: "A1",
			Questions: []model.Question{
				{Text: "Wie ___ du? (heißen)", Type: model.QuestionFillBlank, Difficulty: "easy",
					AnswerPatterns: []model.AnswerPattern{{Pattern: "heißt", Kind: model.PatternCaseInsensitive}, {Pattern: "heisst", Kind: model.PatternCaseInsensitive}},
					HintText:       "Konjugation von „heißen“ in der 2. Person Singular.",
					HintLinks:      datatypes.JSON(`["https://www.dw.com/de/deutsch-lernen/nicos-weg/s-52096"]`)},
				{Text: "Welcher Artikel passt? ___ Tisch", Type: model.QuestionSingleChoice, Difficulty: "easy",
					Choices: choices(0, "der", "die", "das"), HintText: "Tisch ist maskulin."},
				{Text: "„Guten Morgen“ sagt man am Abend.", Type: model.QuestionTrueFalse, Difficulty: "easy",
					CorrectBoolean: truth(false)},
				{Text: "Ordnen Sie die Zahlen.", Type: model.QuestionOrdering, Difficulty: "easy",
					OrderingItems: ordering("eins", "zwei", "drei", "vier")},
				{Text: "Verbinden Sie die Farben.", Type: model.QuestionMatching, Difficulty: "easy",
					MatchPairs: pairs("rot", "red", "blau", "blue", "grün", "green")},
				{Text: "Welche Wörter sind Wochentage?", Type: model.QuestionMultiChoice, Difficulty: "medium",
					Choices: []model.Choice{{Text: "Montag", IsCorrect: true}, {Text: "Januar"}, {Text: "Freitag", IsCorrect: true}, {Text: "Sommer"}},
					HintResources: []model.HintResource{{Title: "Wochentage", URL: "https://learngerman.dw.com/de/wochentage", Kind: "article"}}},
			},
		},
		{
			Title: "Einstufungstest A2",
			Level: "A2",
			Questions: []model.Question{
				{Text: "Gestern ___ ich ins Kino gegangen.", Type: model.QuestionSingleChoice, Difficulty: "medium",
					Choices: choices(1, "habe", "bin", "war"), HintText: "Perfekt mit Bewegungsverben bildet man mit „sein“."},
				{Text: "Ich fahre ___ dem Bus.", Type: model.QuestionFillBlank, Difficulty: "medium",
					AnswerPatterns: []model.AnswerPattern{{Pattern: "mit", Kind: model.PatternExact}}},
				{Text: "„Weil“ stellt das Verb ans Satzende.", Type: model.QuestionTrueFalse, Difficulty: "medium",
					CorrectBoolean: truth(true)},
				{Text: "Bringen Sie den Satz in die richtige Reihenfolge.", Type: model.QuestionOrdering, Difficulty: "medium",
					OrderingItems: ordering("Morgen", "fahre", "ich", "nach Berlin")},
				{Text: "Verbinden Sie Verb und Partizip.", Type: model.QuestionMatching, Difficulty: "medium",
					MatchPairs: pairs("gehen", "gegangen", "essen", "gegessen", "schreiben", "geschrieben")},
				{Text: "Welche Präpositionen stehen immer mit Dativ?", Type: model.QuestionMultiChoice, Difficulty: "medium",
					Choices: []model.Choice{{Text: "aus", IsCorrect: true}, {Text: "für"}, {Text: "bei", IsCorrect: true}, {Text: "durch"}}},
				{Text: "Komparativ von „gut“:", Type: model.QuestionFillBlank, Difficulty: "medium",
					AnswerPatterns: []model.AnswerPattern{{Pattern: "besser", Kind: model.PatternCaseInsensitive}}},
			},
		},
		{
			Title: "Einstufungstest B1",
			Level: "B1",
			Questions: []model.Question{
				{Text: "Das ist der Mann, ___ ich geholfen habe.", Type: model.QuestionSingleChoice, Difficulty: "hard", Weight: 2,
					Choices: choices(2, "den", "der", "dem"), HintText: "„helfen“ verlangt den Dativ."},
				{Text: "Wenn ich Zeit ___, würde ich reisen.", Type: model.QuestionFillBlank, Difficulty: "medium",
					AnswerPatterns: []model.AnswerPattern{{Pattern: "h(ä|ae)tte", Kind: model.PatternRegex}}},
				{Text: "Das Passiv wird mit „werden“ gebildet.", Type: model.QuestionTrueFalse, Difficulty: "medium",
					CorrectBoolean: truth(true)},
				{Text: "Ordnen Sie die Schritte einer Bewerbung.", Type: model.QuestionOrdering, Difficulty: "medium",
					OrderingItems: ordering("Stellenanzeige lesen", "Lebenslauf schreiben", "Bewerbung abschicken", "Vorstellungsgespräch")},
				{Text: "Verbinden Sie die Konnektoren mit ihrer Funktion.", Type: model.QuestionMatching, Difficulty: "hard",
					MatchPairs: pairs("obwohl", "Gegensatz", "damit", "Zweck", "deshalb", "Folge")},
			},
		},
		{
			Title: "Einstufungstest B2",
			Level: "B2",
			Questions: []model.Question{
				{Text: "Er tat so, als ___ er nichts gewusst.", Type: model.QuestionSingleChoice, Difficulty: "hard",
					Choices: choices(0, "hätte", "habe", "hat")},
				{Text: "Nominalisieren Sie: „entscheiden“ → die ___", Type: model.QuestionFillBlank, Difficulty: "hard",
					AnswerPatterns: []model.AnswerPattern{{Pattern: "Entscheidung", Kind: model.PatternExact}}},
				{Text: "„Trotz“ steht standardsprachlich mit Genitiv.", Type: model.QuestionTrueFalse, Difficulty: "medium",
					CorrectBoolean: truth(true)},
				{Text: "Welche Sätze stehen im Konjunktiv I?", Type: model.QuestionMultiChoice, Difficulty: "hard", Weight: 2,
					Choices: []model.Choice{{Text: "Er sagt, er sei krank.", IsCorrect: true}, {Text: "Er wäre gern hier."}, {Text: "Sie habe keine Zeit.", IsCorrect: true}}},
				{Text: "Verbinden Sie Redewendung und Bedeutung.", Type: model.QuestionMatching, Difficulty: "hard",
					MatchPairs: pairs("ins Gras beißen", "sterben", "Tomaten auf den Augen haben", "etwas übersehen")},
			},
		},
	}
}

// SeedSampleBank 题库为空时写入 A1-B2 示例题目
func SeedSampleBank(db *gorm.DB) (bool, error) {
	var count int64
	if err := db.Model(&model.Assessment{}).Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		for _, a := range sampleBank() {
			a.IsActive = true
			a.TimeLimitSeconds = 600
			a.AttemptLimit = 3
			for i := range a.Questions {
				a.Questions[i].TargetLevel = a.Level
				if a.Questions[i].Weight == 0 {
					a.Questions[i].Weight = 1
				}
			}
			if err := tx.Create(&a).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	log.Println("Sample question bank seeded")
	return true, nil
}
