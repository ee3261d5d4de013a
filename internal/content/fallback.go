package content

// Fallback returns a small built-in game used when no generator is configured
// and the host has nothing to upload.
func Fallback() *GameData {
	return &GameData{
		Rounds: []Round{
			{
				Name: "Round 1",
				Type: RoundNormal,
				Categories: []Category{
					{
						Title: "Geography",
						Questions: []Question{
							{Text: "The longest river in Africa", Answer: "The Nile", Value: 100},
							{Text: "Capital of Australia", Answer: "Canberra", Value: 200},
							{Text: "The only country bordering both the Atlantic and Indian oceans by land", Answer: "South Africa", Value: 300},
						},
					},
					{
						Title: "Science",
						Questions: []Question{
							{Text: "Chemical symbol for gold", Answer: "Au", Value: 100},
							{Text: "The planet with the shortest day", Answer: "Jupiter", Value: 200},
							{Text: "Number of bones in the adult human body", Answer: "206", Value: 300},
						},
					},
					{
						Title: "Music",
						Questions: []Question{
							{Text: "Number of strings on a standard guitar", Answer: "Six", Value: 100},
							{Text: "Composer of the Moonlight Sonata", Answer: "Beethoven", Value: 200},
							{Text: "The instrument Miles Davis played", Answer: "Trumpet", Value: 300},
						},
					},
				},
			},
			{
				Name: "Round 2",
				Type: RoundNormal,
				Categories: []Category{
					{
						Title: "History",
						Questions: []Question{
							{Text: "Year the Berlin Wall fell", Answer: "1989", Value: 200},
							{Text: "First emperor of Rome", Answer: "Augustus", Value: 400},
							{Text: "The ship Darwin sailed on", Answer: "HMS Beagle", Value: 600},
						},
					},
					{
						Title: "Words",
						Questions: []Question{
							{Text: "A word that reads the same backwards", Answer: "Palindrome", Value: 200},
							{Text: "Fear of spiders", Answer: "Arachnophobia", Value: 400},
							{Text: "The longest word in English without a true vowel", Answer: "Rhythms", Value: 600},
						},
					},
				},
			},
			{
				Name: "Final",
				Type: RoundFinal,
				Categories: []Category{
					{
						Title: "Inventions",
						Questions: []Question{
							{Text: "He patented the telephone in 1876", Answer: "Alexander Graham Bell", Value: 0},
						},
					},
				},
			},
		},
	}
}
