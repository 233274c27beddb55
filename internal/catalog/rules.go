package catalog

// Level and type vocabulary of the theme catalog. The base levels pair
// with the two-choice/single types; each special level carries its own
// type group and a fixed practice duration.
const (
	LevelBeginner     = "初級"
	LevelIntermediate = "中級"
	LevelAdvanced     = "上級"
	LevelExpert       = "超級"
	LevelInterview    = "面接対応"

	LevelTenSecond    = "10秒スピーチチャレンジ"
	LevelSchoolSixty  = "小中学生のための60秒スピーチ"
	LevelInterview40  = "大学生のための就活面接40秒スピーチ"

	TypeTwoChoice = "二択"
	TypeSingle    = "単体"
	TypeNone      = "なし"
)

// BaseLevels are the levels whose types switch between two-choice and
// single prompts.
var BaseLevels = []string{
	LevelBeginner, LevelIntermediate, LevelAdvanced, LevelExpert, LevelInterview,
}

var typesSixty = []string{
	"自分のこと",
	"学校生活・友だち",
	"家族・家のこと",
	"趣味・好きなもの",
	"社会・世界・地域",
	"夢・将来",
	"心・考え・生き方",
	"チャレンジ・希望",
}

var typesForty = []string{
	"基本情報・自己紹介",
	"学業・研究内容",
	"経験・エピソード",
	"価値観・考え方",
	"将来・キャリアビジョン",
	"時事・一般常識・その他",
}

// AllowedTypesForLevel returns the types permitted for a level, or nil when
// the level carries no constraint.
func AllowedTypesForLevel(level string) []string {
	for _, l := range BaseLevels {
		if level == l {
			return []string{TypeTwoChoice, TypeSingle}
		}
	}
	switch level {
	case LevelTenSecond:
		return []string{TypeNone}
	case LevelSchoolSixty:
		return append([]string(nil), typesSixty...)
	case LevelInterview40:
		return append([]string(nil), typesForty...)
	}
	return nil
}

// AllowedLevelsForType returns the levels a type belongs to, or nil when
// the type carries no constraint.
func AllowedLevelsForType(ptype string) []string {
	if ptype == TypeTwoChoice || ptype == TypeSingle {
		return append([]string(nil), BaseLevels...)
	}
	if ptype == TypeNone {
		return []string{LevelTenSecond}
	}
	for _, t := range typesSixty {
		if ptype == t {
			return []string{LevelSchoolSixty}
		}
	}
	for _, t := range typesForty {
		if ptype == t {
			return []string{LevelInterview40}
		}
	}
	return nil
}

// DurationForLevel returns the fixed duration a special level imposes.
func DurationForLevel(level string) (int, bool) {
	switch level {
	case LevelTenSecond:
		return 10, true
	case LevelInterview40:
		return 40, true
	case LevelSchoolSixty:
		return 60, true
	}
	return 0, false
}

// ValidFilter reports whether the level/type pair is consistent with the
// constraint table. Empty fields are unconstrained.
func ValidFilter(level, ptype string) bool {
	if level == "" || ptype == "" {
		return true
	}
	allowed := AllowedTypesForLevel(level)
	if allowed == nil {
		return true
	}
	for _, t := range allowed {
		if t == ptype {
			return true
		}
	}
	return false
}
