package query

// Canned chat messages.
const (
	// MsgNotFound is what the local-data processor answers when the cache
	// has nothing; the router then tries later routes.
	MsgNotFound = "Nie znalazłem tej informacji w dostępnych danych."
	MsgInternal = "Przepraszam, wystąpił błąd podczas przetwarzania zapytania. Proszę spróbować ponownie."

	msgStationUnavailable = "Nie udało się pobrać danych ze stacji %s. Spróbuj ponownie później."
	msgSensorUnavailable  = "Nie udało się pobrać odczytów czujników ze stacji %s. Spróbuj ponownie później."
	msgNoStations         = "Przepraszam, nie mam dostępnych danych o stacjach pomiarowych jakości powietrza. Spróbuj ponownie za chwilę."
	msgMapFailed          = "Wystąpił błąd podczas przetwarzania zapytania o dane z mapy. Spróbuj zapytać inaczej lub o inną stację."
	msgNoNearby           = "Nie znalazłem stacji pomiarowych w pobliżu %s."

	msgNoProjectAnomalies       = "Nie mogę wykryć anomalii, ponieważ brak danych projektu. Wygeneruj projekt w sekcji 'Przestrzenie' lub wczytaj dane."
	msgNoProjectForecast        = "Nie mogę wygenerować prognozy, ponieważ brak danych projektu. Wygeneruj projekt w sekcji 'Przestrzenie' lub wczytaj dane."
	msgNoProjectCorrelation     = "Nie mogę przeprowadzić analizy korelacji, ponieważ brak danych projektu. Wygeneruj projekt w sekcji 'Przestrzenie' lub wczytaj dane."
	msgNoProjectRecommendations = "Nie mogę wygenerować rekomendacji, ponieważ brak danych projektu. Wygeneruj projekt w sekcji 'Przestrzenie' lub wczytaj dane."
	msgNoProjectScenario        = "Nie mogę przeprowadzić symulacji, ponieważ brak danych projektu. Wygeneruj projekt w sekcji 'Przestrzenie' lub wczytaj dane."
	msgNoProjectSensors         = "Nie mam dostępu do odczytów czujników, ponieważ brak danych projektu. Wygeneruj projekt w sekcji 'Przestrzenie' lub wczytaj dane."
	msgNoProjectAir             = "Nie mam dostępu do danych o jakości powietrza. Sprawdź czy wygenerowano projekt w sekcji 'Przestrzenie'."

	msgNoAnomalies   = "Nie wykryto żadnych anomalii w danych projektu."
	msgNoCorrelation = "Nie zidentyfikowano istotnych korelacji w dostępnych danych."
	msgReportFailed  = "Przepraszam, wystąpił błąd podczas generowania raportu. Proszę sprawdzić, czy klucz API modelu językowego jest poprawnie skonfigurowany i spróbować ponownie."
	msgAnswerFailed  = "Przepraszam, nie mogę teraz odpowiedzieć na to pytanie. Proszę sprawdzić, czy klucz API modelu językowego jest poprawnie skonfigurowany."

	unnamedProject = "Bez nazwy"
	noData         = "brak danych"
)
