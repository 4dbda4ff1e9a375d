package bot

// User-facing replies. Internal detail such as SQL text or driver errors
// never reaches the chat.
const (
	ReplyGreeting      = "Привет! Я аналитический бот. Спроси меня что-нибудь о статистике видео."
	ReplyHelp          = "Задайте вопрос о статистике видео обычным текстом, например: «Сколько видео у креатора с id 1 вышло с 1 ноября 2025 по 5 ноября 2025 включительно?» В ответ придёт одно число."
	ReplyNotUnderstood = "Не удалось понять запрос или сгенерировать SQL."
	ReplyDatabaseError = "Ошибка выполнения запроса к базе данных."
	ReplyNoData        = "Нет данных для ответа на этот запрос."
	ReplyRateLimited   = "Слишком много запросов. Попробуйте немного позже."
)
