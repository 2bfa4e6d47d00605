package domain

// VisualizationType tells the consumer which widget renders the payload.
type VisualizationType string

const (
	VisualizationAirQuality    VisualizationType = "airQuality"
	VisualizationSensorReading VisualizationType = "sensorReading"
	VisualizationStationList   VisualizationType = "stationList"
)

// Visualization is an optional structured payload attached to a chat answer.
type Visualization struct {
	Type  VisualizationType `json:"type"`
	Title string            `json:"title"`
	Data  any               `json:"data"`
}

// SensorResponse is the result of processing one query.
type SensorResponse struct {
	Text           string          `json:"text"`
	Visualizations []Visualization `json:"visualizations,omitempty"`
}

// SensorReadingData is the payload of a sensorReading visualization.
type SensorReadingData struct {
	Name        string `json:"name"`
	Value       string `json:"value"`
	Unit        string `json:"unit"`
	Trend       Trend  `json:"trend"`
	Description string `json:"description"`
}
