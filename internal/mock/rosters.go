package mock

import "github.com/stitts-dev/fantasy-feed/internal/models"

type team struct {
	Name  string
	Slug  string
	Venue string
}

type league struct {
	Name    string
	Premium bool
	Teams   []team
}

var leagues = []league{
	{
		Name:    "Premier League",
		Premium: true,
		Teams: []team{
			{"Arsenal", "arsenal", "Emirates Stadium"},
			{"Liverpool", "liverpool", "Anfield"},
			{"Manchester City", "manchester-city", "Etihad Stadium"},
			{"Chelsea", "chelsea", "Stamford Bridge"},
			{"Tottenham Hotspur", "tottenham", "Tottenham Hotspur Stadium"},
			{"Newcastle United", "newcastle", "St James' Park"},
		},
	},
	{
		Name:    "La Liga",
		Premium: true,
		Teams: []team{
			{"Real Madrid", "real-madrid", "Santiago Bernabeu"},
			{"Barcelona", "barcelona", "Estadi Olimpic"},
			{"Atletico Madrid", "atletico-madrid", "Metropolitano"},
			{"Real Sociedad", "real-sociedad", "Anoeta"},
			{"Villarreal", "villarreal", "Estadio de la Ceramica"},
			{"Sevilla", "sevilla", "Ramon Sanchez-Pizjuan"},
		},
	},
	{
		Name:    "Champions League",
		Premium: true,
		Teams: []team{
			{"Bayern Munich", "bayern", "Allianz Arena"},
			{"Paris Saint-Germain", "psg", "Parc des Princes"},
			{"Inter", "inter", "San Siro"},
			{"Benfica", "benfica", "Estadio da Luz"},
			{"Porto", "porto", "Estadio do Dragao"},
			{"Celtic", "celtic", "Celtic Park"},
		},
	},
	{
		Name: "Serie A",
		Teams: []team{
			{"Juventus", "juventus", "Allianz Stadium"},
			{"AC Milan", "ac-milan", "San Siro"},
			{"Napoli", "napoli", "Stadio Diego Armando Maradona"},
			{"Roma", "roma", "Stadio Olimpico"},
			{"Lazio", "lazio", "Stadio Olimpico"},
			{"Atalanta", "atalanta", "Gewiss Stadium"},
		},
	},
	{
		Name: "Bundesliga",
		Teams: []team{
			{"Borussia Dortmund", "dortmund", "Signal Iduna Park"},
			{"RB Leipzig", "leipzig", "Red Bull Arena"},
			{"Bayer Leverkusen", "leverkusen", "BayArena"},
			{"Eintracht Frankfurt", "frankfurt", "Deutsche Bank Park"},
			{"VfB Stuttgart", "stuttgart", "MHPArena"},
			{"SC Freiburg", "freiburg", "Europa-Park Stadion"},
		},
	},
	{
		Name: "Ligue 1",
		Teams: []team{
			{"Marseille", "marseille", "Orange Velodrome"},
			{"Lyon", "lyon", "Groupama Stadium"},
			{"Monaco", "monaco", "Stade Louis II"},
			{"Lille", "lille", "Stade Pierre-Mauroy"},
			{"Nice", "nice", "Allianz Riviera"},
			{"Rennes", "rennes", "Roazhon Park"},
		},
	},
}

// per side
var roleHeadcounts = []struct {
	Role  models.PlayerRole
	Count int
}{
	{models.RoleGoalkeeper, 2},
	{models.RoleDefender, 8},
	{models.RoleMidfielder, 8},
	{models.RoleForward, 6},
}

var creditRanges = map[models.PlayerRole][2]float64{
	models.RoleGoalkeeper: {4.5, 6.0},
	models.RoleDefender:   {4.5, 6.5},
	models.RoleMidfielder: {5.5, 9.5},
	models.RoleForward:    {6.5, 10.5},
}

var firstNames = []string{
	"Aaron", "Bruno", "Caleb", "Dario", "Emil", "Fabian", "Gonzalo", "Hugo", "Ivan", "Jonas",
	"Kai", "Luca", "Mateo", "Nico", "Oscar", "Pablo", "Quentin", "Rafael", "Sami", "Tomas",
	"Umar", "Victor", "Wesley", "Xavi", "Yannick", "Zeki",
}

var lastNames = []string{
	"Almeida", "Bergstrom", "Castellanos", "Dembinski", "Eriksen", "Fontaine", "Galvao", "Hartmann",
	"Ibanez", "Jovanovic", "Kowalczyk", "Lindqvist", "Moreau", "Novak", "Okafor", "Petrov",
	"Quaresma", "Rossetti", "Sandoval", "Tavares", "Urbina", "Varga", "Weber", "Yilmaz", "Zielinski",
}

var lineupLabels = []string{"confirmed", "probable", "unknown"}

var injuryStatuses = []string{"fit", "fit", "fit", "fit", "fit", "fit", "fit", "fit", "doubtful", "injured"}
