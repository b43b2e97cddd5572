package rooms

var colors = []string{
	"amber", "azure", "coral", "cobalt", "copper", "crimson", "ebony", "golden", "indigo", "ivory",
	"jade", "lilac", "maroon", "mint", "ochre", "olive", "peach", "plum", "rose", "ruby",
	"russet", "saffron", "sage", "scarlet", "silver", "slate", "teal", "topaz", "umber", "violet",
}

var creatures = []string{
	"otter", "badger", "heron", "lynx", "marten", "newt", "osprey", "panda", "puffin", "quokka",
	"raven", "salmon", "sloth", "stoat", "tapir", "toucan", "walrus", "wombat", "yak", "zebra",
	"beaver", "bison", "condor", "dingo", "egret", "falcon", "gecko", "ibis", "koala", "lemur",
}

var foods = []string{
	"ramen", "bagel", "churro", "crepe", "dumpling", "empanada", "falafel", "gnocchi", "gyoza", "kimchi",
	"laksa", "mochi", "nachos", "paella", "pho", "pretzel", "risotto", "samosa", "scone", "tamale",
	"tofu", "waffle", "biscuit", "brioche", "congee", "donut", "fondue", "muffin", "noodle", "tart",
}

var places = []string{
	"harbor", "meadow", "canyon", "delta", "fjord", "glacier", "grove", "island", "lagoon", "mesa",
	"orchard", "prairie", "reef", "ridge", "savanna", "summit", "tundra", "valley", "volcano", "atoll",
	"bayou", "cavern", "cove", "dune", "estuary", "forest", "geyser", "marsh", "oasis", "plateau",
}

var weather = []string{
	"breezy", "cloudy", "drizzly", "foggy", "frosty", "gusty", "hazy", "icy", "misty", "rainy",
	"snowy", "stormy", "sunny", "balmy", "blustery", "chilly", "crisp", "damp", "humid", "mild",
	"muggy", "sleety", "sultry", "thundery", "windy", "arid", "bright", "calm", "dewy", "hot",
}

var trinkets = []string{
	"anchor", "button", "compass", "feather", "goblet", "kazoo", "lantern", "locket", "marble", "mitten",
	"pebble", "quill", "ribbon", "rocket", "spindle", "teacup", "thimble", "trumpet", "whistle", "yoyo",
	"abacus", "bangle", "candle", "domino", "easel", "fiddle", "gizmo", "hammock", "kettle", "lasso",
}
