package tags

// Whitelists mirror the tag vocabulary the synthesis model was tuned on.

var Genres = []string{
	"acoustic", "afrobeat", "ambient", "atmospheric", "bluegrass", "blues",
	"bossa nova", "breakbeat", "britpop", "celtic", "chillwave", "choir",
	"cinematic", "classical", "country", "dance", "dark ambient", "deep house",
	"disco", "downtempo", "dream pop", "drill", "drum and bass", "dub",
	"dubstep", "edm", "electro", "electronic", "emo", "ethereal", "experimental",
	"flamenco", "folk", "funk", "future bass", "garage", "gospel", "grime",
	"grunge", "hardcore", "hardstyle", "hip hop", "house", "idm", "indie",
	"indie folk", "indie pop", "indie rock", "industrial", "j-pop", "jazz",
	"k-pop", "latin", "lo-fi", "lounge", "math rock", "metal", "minimal",
	"neo soul", "new wave", "noise", "orchestral", "phonk", "pop", "pop rock",
	"post punk", "post rock", "progressive", "psych rock", "punk", "r&b",
	"rap", "reggae", "reggaeton", "rock", "shoegaze", "ska", "soul",
	"synthpop", "synth pop", "techno", "trance", "trap", "trip hop",
	"vaporwave", "world",
}

var Moods = []string{
	"adventurous", "aggressive", "ambient", "angelic", "angry", "anxious",
	"atmospheric", "beautiful", "blissful", "bouncy", "breezy", "bright",
	"brooding", "calm", "carefree", "celebratory", "cheerful", "cinematic",
	"contemplative", "cool", "cosmic", "cozy", "dark", "deep", "defiant",
	"delicate", "dramatic", "dreamy", "driving", "dynamic", "eerie",
	"elegant", "emotional", "energetic", "epic", "ethereal", "euphoric",
	"exotic", "fierce", "floating", "funky", "gentle", "gloomy", "graceful",
	"gritty", "groovy", "haunting", "heartfelt", "heavy", "hopeful",
	"hypnotic", "intense", "intimate", "introspective", "joyful", "lazy",
	"lively", "lonely", "lush", "majestic", "meditative", "melancholic",
	"mellow", "menacing", "mysterious", "nocturnal", "nostalgic", "ominous",
	"optimistic", "passionate", "peaceful", "playful", "powerful", "pulsing",
	"raw", "rebellious", "reflective", "relaxed", "romantic", "sad",
	"sensual", "serene", "shimmering", "smooth", "sombre", "soothing",
	"spacious", "spiritual", "sultry", "suspenseful", "sweet", "tender",
	"tense", "triumphant", "upbeat", "uplifting", "urgent", "vibrant",
	"warm", "wistful", "yearning",
}

var Instruments = []string{
	"808", "accordion", "acoustic guitar", "alto sax", "banjo", "bass",
	"bass guitar", "bassoon", "bells", "brass", "cello", "choir",
	"clarinet", "congas", "cymbals", "distorted guitar", "double bass",
	"drum machine", "drums", "electric bass", "electric guitar",
	"electric piano", "fiddle", "flute", "french horn", "glockenspiel",
	"harp", "harpsichord", "hi-hat", "horns", "keys", "kick drum",
	"mandolin", "marimba", "mellotron", "moog", "oboe", "organ",
	"pad", "percussion", "piano", "plucked strings", "rhodes",
	"sitar", "snare", "steel drum", "strings", "sub bass", "synth",
	"synth bass", "synth lead", "synth pad", "synth strings", "tabla",
	"tambourine", "tenor sax", "theremin", "timpani", "trombone",
	"trumpet", "tuba", "ukulele", "upright bass", "vibraphone", "viola",
	"violin", "vocoder", "woodwinds", "wurlitzer", "xylophone",
}

var Vocals = []string{
	"male vocal", "female vocal", "male rap", "female rap",
	"vocal harmony", "vocal chops", "spoken word", "instrumental",
}

var VocalFX = []string{
	"autotune", "chorus effect", "delay throw", "distorted vocal",
	"double tracked", "echo", "falsetto", "filtered vocal",
	"harmony", "layered vocals", "megaphone", "octave vocal",
	"pitch-shift", "reverb vocal", "robotic vocal", "slap-back",
	"telephone vocal", "vocoder", "vocal fry", "whisper vocal",
	"wide stereo vocal",
}

var Textures = []string{
	"airy", "analog", "atmospheric", "bitcrushed", "bright", "clean",
	"compressed", "crisp", "crunchy", "dark", "deep", "dense", "digital",
	"distorted", "dry", "dusty", "ethereal", "fat", "filtered", "fizzy",
	"full", "fuzzy", "glitchy", "grainy", "gritty", "heavy", "hollow",
	"icy", "layered", "light", "lo-fi", "lush", "metallic", "muddy",
	"organic", "polished", "punchy", "raw", "resonant", "reverberant",
	"rich", "saturated", "sharp", "shimmery", "silky", "smooth", "soft",
	"spacious", "sparse", "stuttered", "tape-saturated", "thick", "thin",
	"tight", "tinny", "vintage", "warm", "washy", "wet", "wide",
}

// Aliases map common variants to canonical whitelist tags.
var Aliases = map[string]string{
	"hip-hop":            "hip hop",
	"hiphop":             "hip hop",
	"dnb":                "drum and bass",
	"d&b":                "drum and bass",
	"d'n'b":              "drum and bass",
	"rnb":                "r&b",
	"r'n'b":              "r&b",
	"rhythm and blues":   "r&b",
	"lofi":               "lo-fi",
	"lo fi":              "lo-fi",
	"synthwave":          "synth pop",
	"electronica":        "electronic",
	"alt rock":           "indie rock",
	"alternative":        "indie rock",
	"alternative rock":   "indie rock",
	"death metal":        "metal",
	"black metal":        "metal",
	"thrash metal":       "metal",
	"heavy metal":        "metal",
	"nu metal":           "metal",
	"prog rock":          "progressive",
	"progressive rock":   "progressive",
	"prog":               "progressive",
	"psychedelic":        "psych rock",
	"psych":              "psych rock",
	"neosoul":            "neo soul",
	"neo-soul":           "neo soul",
	"triphop":            "trip hop",
	"trip-hop":           "trip hop",
	"postrock":           "post rock",
	"post-rock":          "post rock",
	"postpunk":           "post punk",
	"post-punk":          "post punk",
	"indierock":          "indie rock",
	"indiepop":           "indie pop",
	"indiefolk":          "indie folk",
	"futuregarage":       "garage",
	"future garage":      "garage",
	"latin pop":          "latin",
	"cumbia":             "latin",
	"salsa":              "latin",
	"samba":              "bossa nova",
	"bossanova":          "bossa nova",
	"african":            "afrobeat",
	"afropop":            "afrobeat",
	"afro":               "afrobeat",
	"goth":               "dark ambient",
	"dark wave":          "dark ambient",
	"darkwave":           "dark ambient",
	"chillout":           "downtempo",
	"chill out":          "downtempo",
	"bass music":         "dubstep",
	"uk garage":          "garage",
	"ukg":                "garage",
	"male vocals":        "male vocal",
	"female vocals":      "female vocal",
	"male singer":        "male vocal",
	"female singer":      "female vocal",
	"male voice":         "male vocal",
	"female voice":       "female vocal",
	"no vocals":          "instrumental",
	"no singing":         "instrumental",
	"without vocals":     "instrumental",
	"vocal":              "vocal harmony",
	"vocals":             "vocal harmony",
	"backing vocals":     "vocal harmony",
	"synths":             "synth",
	"synthesizer":        "synth",
	"synthesizers":       "synth",
	"pads":               "synth pad",
	"string pad":         "synth strings",
	"lead synth":         "synth lead",
	"bass synth":         "synth bass",
	"electric bass guitar": "electric bass",
	"acoustic bass":      "upright bass",
	"standup bass":       "upright bass",
	"stand-up bass":      "upright bass",
	"sax":                "alto sax",
	"saxophone":          "alto sax",
	"soprano sax":        "alto sax",
	"ep":                 "electric piano",
	"e-piano":            "electric piano",
	"fender rhodes":      "rhodes",
	"wurli":              "wurlitzer",
	"keyboard":           "keys",
	"keyboards":          "keys",
	"bongos":             "congas",
	"hand drums":         "congas",
	"djembe":             "congas",
	"string section":     "strings",
	"violins":            "strings",
	"cellos":             "strings",
	"violas":             "strings",
	"brass section":      "brass",
	"horn section":       "horns",
	"woodwind":           "woodwinds",
	"wind instruments":   "woodwinds",
	"ride cymbal":        "cymbals",
	"crash cymbal":       "cymbals",
	"steel drums":        "steel drum",
	"steel pan":          "steel drum",
	"pitched down":       "pitch-shift",
	"pitch shifted":      "pitch-shift",
	"auto-tune":          "autotune",
	"auto tune":          "autotune",
	"talk box":           "vocoder",
	"talkbox":            "vocoder",
}
