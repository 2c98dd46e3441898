package conversation

import "strings"

// Prompt texts keyed by state and locale. The original audience of the bot
// is Russian-speaking, so both catalogs are maintained; unknown locales fall
// back to English.
var prompts = map[State]map[string]string{
	StateAwaitPhoto: {
		"en": "Send the photo you want to uniquify. Supported formats: JPG, PNG, WEBP.",
		"ru": "Отправьте фото, которое нужно уникализировать. Поддерживаются форматы: JPG, PNG, WEBP.",
	},
	StateAwaitCopies: {
		"en": "Photo received. How many unique copies do you need (1-10)?",
		"ru": "Фото получено. Выберите количество уникальных копий (от 1 до 10):",
	},
	StateAwaitFormat: {
		"en": "Choose the output format: jpeg, png or webp.",
		"ru": "Выберите формат файла: jpeg, png или webp.",
	},
	StateAwaitFlip: {
		"en": "Mirror the image horizontally? (yes/no)",
		"ru": "Отразить по горизонтали? (да/нет)",
	},
	StateAwaitTextChoice: {
		"en": "Add a text caption? (yes/no)",
		"ru": "Добавить текст? (да/нет)",
	},
	StateAwaitTextInput: {
		"en": "Type the caption to place on the photo.",
		"ru": "Введите текст, который нужно добавить на фото.",
	},
	StateAwaitOverlayChoice: {
		"en": "Add a secondary photo on top? (yes/no)",
		"ru": "Добавить дополнительное фото? (да/нет)",
	},
	StateAwaitOverlayPhoto: {
		"en": "Send the secondary photo to overlay on the main one.",
		"ru": "Отправьте дополнительное фото, которое будет наложено на основное.",
	},
	StateAwaitOverlayPosition: {
		"en": "Pick the overlay position: top_left, top_right, bottom_left, bottom_right or center.",
		"ru": "Выберите позицию дополнительного фото: top_left, top_right, bottom_left, bottom_right или center.",
	},
	StateAwaitOverlayOpacity: {
		"en": "Enter the overlay opacity from 0 (transparent) to 100 (opaque).",
		"ru": "Введите непрозрачность дополнительного фото от 0 (прозрачное) до 100 (непрозрачное).",
	},
	StateAwaitingResult: {
		"en": "Generating your copies. You will be notified when the job finishes.",
		"ru": "Создаю уникальные копии. Вы получите уведомление, когда задание завершится.",
	},
	StateClosed: {
		"en": "Cancelled. Back to the menu.",
		"ru": "Отменено. Возврат в меню.",
	},
}

var invalidHints = map[string]map[string]string{
	"copies": {
		"en": "Please send a number from 1 to 10.",
		"ru": "Введите число от 1 до 10.",
	},
	"format": {
		"en": "Unsupported format. Send jpeg, png or webp.",
		"ru": "Неверный формат. Отправьте jpeg, png или webp.",
	},
	"yesno": {
		"en": "Please answer yes or no.",
		"ru": "Ответьте да или нет.",
	},
	"photo": {
		"en": "That does not look like a photo upload. Send an image.",
		"ru": "Это не похоже на фото. Отправьте изображение.",
	},
	"photo_too_big": {
		"en": "The file is too large.",
		"ru": "Файл слишком большой.",
	},
	"text": {
		"en": "Send a non-empty text message.",
		"ru": "Отправьте непустое текстовое сообщение.",
	},
	"position": {
		"en": "Unknown position. Use top_left, top_right, bottom_left, bottom_right or center.",
		"ru": "Неизвестная позиция. Используйте top_left, top_right, bottom_left, bottom_right или center.",
	},
	"opacity": {
		"en": "Please send a number from 0 to 100.",
		"ru": "Введите число от 0 до 100.",
	},
}

func promptFor(state State, locale string) string {
	byLocale, ok := prompts[state]
	if !ok {
		return ""
	}
	if text, ok := byLocale[locale]; ok {
		return text
	}
	return byLocale["en"]
}

func hint(key, locale string) string {
	byLocale, ok := invalidHints[key]
	if !ok {
		return ""
	}
	if text, ok := byLocale[locale]; ok {
		return text
	}
	return byLocale["en"]
}

var escapeTokens = map[string]struct{}{
	"cancel": {}, "menu": {}, "отмена": {}, "меню": {},
}

func isEscape(text string) bool {
	_, ok := escapeTokens[strings.ToLower(strings.TrimSpace(text))]
	return ok
}

func parseYesNo(text string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "yes", "y", "да":
		return true, true
	case "no", "n", "нет":
		return false, true
	}
	return false, false
}
