package i18n

// Translator retrieves localized messages for error codes. data provides
// the metadata embedded in the message (for example, "schema" or "field").
type Translator interface {
	Message(code string, data map[string]string) string
}

// dictTranslator is the built-in dictionary-based Translator.
type dictTranslator struct{ lang string }

func (t dictTranslator) Message(code string, data map[string]string) string {
	get := func(k string) string {
		if data == nil {
			return ""
		}
		return data[k]
	}
	switch t.lang {
	case "ja":
		switch code {
		case "schema_not_found":
			return "スキーマが見つかりません: " + get("name")
		case "discriminator_missing":
			return "識別子キー " + get("key") + " がありません"
		case "required_missing":
			return "スキーマ " + get("schema") + ": 必須フィールドが不足しています: " + get("fields")
		case "coercion_failed":
			return "フィールド " + get("field") + " を " + get("type") + " に変換できません: " + get("value")
		case "materialization_failed":
			return "スキーマ " + get("schema") + " の実体化に失敗しました"
		case "unsupported_op":
			return "スキーマ " + get("schema") + ": 未対応の操作です: " + get("op")
		case "parse_error":
			return "スキーマ定義の解析エラー"
		}
	default: // "en"
		switch code {
		case "schema_not_found":
			return "schema not found: " + get("name")
		case "discriminator_missing":
			return "missing discriminator key " + get("key")
		case "required_missing":
			return "schema " + get("schema") + ": missing required fields: " + get("fields")
		case "coercion_failed":
			return "field " + get("field") + ": cannot coerce " + get("value") + " to " + get("type")
		case "materialization_failed":
			return "schema " + get("schema") + ": materialization failed"
		case "unsupported_op":
			return "schema " + get("schema") + ": unsupported operation " + get("op")
		case "parse_error":
			return "schema definition parse error"
		}
	}
	return code
}

var currentTranslator Translator = dictTranslator{lang: "en"}

// SetLanguage switches the built-in Translator language ("en"/"ja").
func SetLanguage(lang string) {
	if lang != "ja" {
		lang = "en"
	}
	currentTranslator = dictTranslator{lang: lang}
}

// SetTranslator replaces the Translator implementation (not limited to the
// dictionary version).
func SetTranslator(tr Translator) {
	if tr == nil {
		currentTranslator = dictTranslator{lang: "en"}
		return
	}
	currentTranslator = tr
}

// T fetches a message for the given code using the current Translator.
func T(code string, data map[string]string) string { return currentTranslator.Message(code, data) }
