package ruleset

import "github.com/jason-s-yu/rolecast/internal/compat"

var catalog = []Theme{
	{ID: 1, Name: "Kingdom Build", Category: "kingdom", Roles: [RoundsPerTheme]Role{
		{"King", "someone who can lead", compat.Leader},
		{"General", "someone with courage", compat.Warrior},
		{"Advisor", "someone wise", compat.Advisor},
		{"Farmer", "someone who knows how to make a living", compat.Provider},
		{"Monk", "someone gentle and courteous", compat.Diplomat},
	}},
	{ID: 2, Name: "Kingdom Build 2", Category: "kingdom", Roles: [RoundsPerTheme]Role{
		{"King", "a prince born to lead", compat.Leader},
		{"Queen", "someone with dignity", compat.Diplomat},
		{"Crown Prince", "someone who takes responsibility", compat.Provider},
		{"Princess", "beautiful but sharp", compat.Advisor},
		{"Court Lady", "a constructive presence", compat.Diplomat},
	}},
	{ID: 3, Name: "Kingdom Build 3", Category: "kingdom", Roles: [RoundsPerTheme]Role{
		{"General", "brave and bold", compat.Warrior},
		{"Minister", "fair and just", compat.Leader},
		{"Advisor", "learned and clever", compat.Advisor},
		{"Chamberlain", "gets things done", compat.Provider},
		{"Royal Cook", "creative", compat.Diplomat},
	}},
	{ID: 4, Name: "Kingdom Build 4", Category: "kingdom", Roles: [RoundsPerTheme]Role{
		{"Monk", "high-minded", compat.Diplomat},
		{"Stable Keeper", "dutiful", compat.Provider},
		{"Beggar", "humble yet complete", compat.Advisor},
		{"Gravekeeper", "calm and responsible", compat.Warrior},
		{"Farmer", "hardworking", compat.Provider},
	}},
	{ID: 5, Name: "Kingdom Build 5", Category: "kingdom", Roles: [RoundsPerTheme]Role{
		{"Traitor", "cunning", compat.Leader},
		{"Spy", "gathers information", compat.Advisor},
		{"Confidant", "steady and trustworthy", compat.Diplomat},
		{"Merchant Lord", "skilled in business", compat.Provider},
		{"Royal Investigator", "seeks the truth", compat.Warrior},
	}},
	{ID: 6, Name: "Family Build", Category: "family", Roles: [RoundsPerTheme]Role{
		{"Grandfather", "experienced and wise", compat.Advisor},
		{"Grandmother", "loving and caring", compat.Diplomat},
		{"Father", "protects the family", compat.Warrior},
		{"Mother", "nurturing", compat.Diplomat},
		{"Stepfather", "carries the burden", compat.Provider},
	}},
	{ID: 7, Name: "Family Build 2", Category: "family", Roles: [RoundsPerTheme]Role{
		{"Son", "the responsible next generation", compat.Leader},
		{"Daughter", "gentle and smart", compat.Diplomat},
		{"Grandchild", "the playful one", compat.Warrior},
		{"Uncle", "knows a bit of everything", compat.Advisor},
		{"Aunt", "carries the family news", compat.Provider},
	}},
	{ID: 8, Name: "Friend Build", Category: "friendship", Roles: [RoundsPerTheme]Role{
		{"Best Friend", "always there", compat.Diplomat},
		{"Party Starter", "brings the energy", compat.Warrior},
		{"Planner", "organizes every trip", compat.Provider},
		{"Therapist Friend", "listens to everyone", compat.Advisor},
		{"Group Leader", "decides where to eat", compat.Leader},
	}},
	{ID: 9, Name: "Friend Build 2", Category: "friendship", Roles: [RoundsPerTheme]Role{
		{"Wallet Friend", "pays for everyone", compat.Provider},
		{"Late Friend", "never on time", compat.Warrior},
		{"Smart Friend", "does the homework", compat.Advisor},
		{"Funny Friend", "the comedian", compat.Diplomat},
		{"Bossy Friend", "takes charge", compat.Leader},
	}},
	{ID: 10, Name: "Relationship Build", Category: "relationship", Roles: [RoundsPerTheme]Role{
		{"Red Flag", "a dangerous lover", compat.Warrior},
		{"Green Flag", "a good partner", compat.Diplomat},
		{"Ex Lover", "a love from the past", compat.Advisor},
		{"Crush", "the one you can't stop thinking about", compat.Leader},
		{"Situationship", "it's complicated", compat.Provider},
	}},
	{ID: 11, Name: "DC Build", Category: "superhero", Roles: [RoundsPerTheme]Role{
		{"Superman", "the strongest hero", compat.Leader},
		{"Batman", "a brilliant strategist", compat.Advisor},
		{"Flash", "the fastest hero", compat.Warrior},
		{"Wonder Woman", "a mighty warrior princess", compat.Diplomat},
		{"Aquaman", "king beneath the sea", compat.Provider},
	}},
	{ID: 12, Name: "DC Build 2", Category: "superhero", Roles: [RoundsPerTheme]Role{
		{"Green Lantern", "driven by imagination", compat.Diplomat},
		{"Cyborg", "master of technology", compat.Advisor},
		{"Martian Manhunter", "reads minds", compat.Leader},
		{"Green Arrow", "a skilled archer", compat.Warrior},
		{"Black Canary", "owner of a sonic voice", compat.Provider},
	}},
	{ID: 13, Name: "Marvel Build", Category: "superhero", Roles: [RoundsPerTheme]Role{
		{"Spider-Man", "a nimble young hero", compat.Warrior},
		{"Iron Man", "a genius inventor", compat.Advisor},
		{"Captain America", "a born leader", compat.Leader},
		{"Thor", "god of thunder", compat.Warrior},
		{"Hulk", "pure strength", compat.Provider},
	}},
	{ID: 14, Name: "Marvel Build 2", Category: "superhero", Roles: [RoundsPerTheme]Role{
		{"Black Widow", "a clever spy", compat.Warrior},
		{"Hawkeye", "an expert marksman", compat.Provider},
		{"Doctor Strange", "master of the mystic arts", compat.Advisor},
		{"Scarlet Witch", "immense power", compat.Diplomat},
		{"Vision", "a brilliant synthetic mind", compat.Leader},
	}},
	{ID: 15, Name: "Football Player Build", Category: "sports", Roles: [RoundsPerTheme]Role{
		{"Lionel Messi", "the maestro", compat.Diplomat},
		{"Cristiano Ronaldo", "the proud competitor", compat.Leader},
		{"Kylian Mbappe", "the fastest player", compat.Warrior},
		{"Erling Haaland", "a goal machine", compat.Provider},
		{"Kevin De Bruyne", "the playmaker", compat.Advisor},
	}},
	{ID: 16, Name: "Music Build", Category: "music", Roles: [RoundsPerTheme]Role{
		{"Lead Singer", "the face of the band", compat.Leader},
		{"Drummer", "keeps the beat", compat.Warrior},
		{"Songwriter", "writes the hits", compat.Advisor},
		{"Manager", "books the gigs", compat.Provider},
		{"Backup Singer", "harmony first", compat.Diplomat},
	}},
}
