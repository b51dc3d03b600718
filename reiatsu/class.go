package reiatsu

import "time"

// Class はプレイヤーのクラスです。報酬計算とスキルのクールダウンに影響します。
type Class int

const (
	ClassNone Class = iota
	ClassAbsorbeur
	ClassParieur
	ClassTravailleur
	ClassIllusionniste
	ClassVoleur
)

// ClassChangeCooldown はクラス変更の間隔です。
const ClassChangeCooldown = 24 * time.Hour

var classKeys = map[Class]string{
	ClassNone:          "",
	ClassAbsorbeur:     "absorbeur",
	ClassParieur:       "parieur",
	ClassTravailleur:   "travailleur",
	ClassIllusionniste: "illusionniste",
	ClassVoleur:        "voleur",
}

// Classes は選択可能なクラスを表示順で返します。
func Classes() []Class {
	return []Class{ClassAbsorbeur, ClassParieur, ClassTravailleur, ClassIllusionniste, ClassVoleur}
}

// ParseClass は保存されたキーをClassに変換します。不明なキーはClassNoneになります。
func ParseClass(key string) Class {
	for c, k := range classKeys {
		if k == key {
			return c
		}
	}
	return ClassNone
}

// Key はDBに保存する文字列です。
func (c Class) Key() string {
	return classKeys[c]
}

// Label は表示用の名前です。
func (c Class) Label() string {
	switch c {
	case ClassAbsorbeur:
		return "Absorbeur"
	case ClassParieur:
		return "Parieur"
	case ClassTravailleur:
		return "Travailleur"
	case ClassIllusionniste:
		return "Illusionniste"
	case ClassVoleur:
		return "Voleur"
	default:
		return "Aucune"
	}
}

// Description はクラス選択時に表示される説明です。
func (c Class) Description() string {
	switch c {
	case ClassAbsorbeur:
		return "+5 Reiatsu sur chaque absorption normale."
	case ClassParieur:
		return "Une chance sur deux de ne rien gagner, sinon entre 5 et 12 Reiatsu."
	case ClassTravailleur:
		return "Chaque 5e absorption normale rapporte 6 Reiatsu."
	case ClassIllusionniste:
		return "Compétence : fait apparaître un faux Reiatsu qui te rapporte 10 points."
	case ClassVoleur:
		return "Aucun bonus d'absorption."
	default:
		return "Aucune classe choisie."
	}
}

// SkillCooldown はスキルのクールダウンです。スキルを持たないクラスは0を返します。
func (c Class) SkillCooldown() time.Duration {
	if c == ClassIllusionniste {
		return 8 * time.Hour
	}
	return 0
}

// HasSkill reports whether the class can arm a skill.
func (c Class) HasSkill() bool {
	return c.SkillCooldown() > 0
}
