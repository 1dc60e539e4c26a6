package server

// Hover documentation for keywords and builtins, in the language's own
// voice. Keyed by the word under the cursor.
var hoverDocs = map[string]string{
	"laat": "**laat** (sleutelwoord)\n\nBind 'n onveranderlike waarde aan 'n naam.\n\n```arkaan\nlaat naam = \"wêreld\"\n```",

	"stel": "**stel** (sleutelwoord)\n\nBind 'n veranderlike waarde aan 'n naam. Op globale vlak verander dit 'n bestaande binding; binne 'n blok skep dit 'n nuwe een.\n\n```arkaan\nstel teller = 0\nteller = teller + 1\n```",

	"fn": "**fn** (sleutelwoord)\n\nSkep 'n anonieme funksie.\n\n```arkaan\nlaat kwadraat = fn(x) x * x\nlaat groet = fn(naam) {\n    gee \"Hallo \" + naam\n}\n```",

	"funksie": "**funksie** (sleutelwoord)\n\nDefinieer 'n benoemde funksie.\n\n```arkaan\nfunksie dubbel(x) {\n    gee x * 2\n}\n```",

	"gee": "**gee** (sleutelwoord)\n\nGee 'n waarde terug uit 'n funksie.\n\n**Voorwaardelike terugkeer (wagklousule):**\n\n```arkaan\nlaat fib = fn(n) {\n    gee n as n <= 1\n    gee fib(n - 1) + fib(n - 2)\n}\n```\n\n**Met anders (ternêre terugkeer):**\n\n```arkaan\nlaat abs = fn(x) {\n    gee -x as x < 0 anders x\n}\n```",

	"as": "**as** (sleutelwoord)\n\nVoorwaardelike stelling of uitdrukking.\n\n```arkaan\nas x > 5 {\n    druk(x)\n} anders {\n    druk(0)\n}\n```",

	"anders": "**anders** (sleutelwoord)\n\nDie alternatiewe tak van 'n as-stelling of -uitdrukking.",

	"terwyl": "**terwyl** (sleutelwoord)\n\nHerhaal solank die voorwaarde waar is.\n\n```arkaan\nstel n = 0\nterwyl n < 5 {\n    druk(n)\n    n = n + 1\n}\n```",

	"pas": "**pas** (sleutelwoord)\n\nPatroon-passing uitdrukking.\n\n```arkaan\npas(waarde) {\n    geval Sommige(x) => x\n    geval Niks => 0\n}\n```",

	"geval": "**geval** (sleutelwoord)\n\n'n Enkele arm van 'n pas-uitdrukking: `geval patroon => uitdrukking`.",

	"tipe": "**tipe** (sleutelwoord)\n\nDefinieer 'n algebraïese datatipe.\n\n```arkaan\ntipe Opsie {\n    Niks\n    Sommige(waarde)\n}\n```",

	"waar": "**waar** (boolean)\n\nBoolean waarde vir 'waar' (true).",

	"vals": "**vals** (boolean)\n\nBoolean waarde vir 'vals' (false).",

	"nil": "**nil**\n\nDie leë waarde.",

	"druk": "**druk** (funksie)\n\nDruk 'n waarde na die konsole.\n\n```arkaan\ndruk(42)\ndruk(waar)\n```",

	"lengte": "**lengte** (funksie)\n\nDie lengte van 'n lys of string.\n\n```arkaan\ndruk(lengte([1, 2, 3]))  // 3\n```",

	"kop": "**kop** (funksie)\n\nDie eerste element van 'n lys. Fout op 'n leë lys.",

	"stert": "**stert** (funksie)\n\nAlles behalwe die eerste element, as 'n nuwe lys.",

	"leeg": "**leeg** (funksie)\n\nKyk of 'n lys leeg is.\n\n```arkaan\ndruk(leeg([]))      // waar\ndruk(leeg([1, 2]))  // vals\n```",

	"voeg_by": "**voeg_by** (funksie)\n\nVoeg 'n element voor aan 'n lys: `voeg_by(x, lys)`.",

	"heg_aan": "**heg_aan** (funksie)\n\nHeg 'n element agter aan 'n lys: `heg_aan(lys, x)`.",

	"ketting": "**ketting** (funksie)\n\nVerbind twee lyste tot een.",

	"omgekeer": "**omgekeer** (funksie)\n\nDraai 'n lys om.",

	"kaart": "**kaart** (funksie)\n\nPas 'n funksie toe op elke element.\n\n```arkaan\ndruk(kaart([1, 2, 3], fn(x) x * x))  // [1, 4, 9]\n```",

	"filter": "**filter** (funksie)\n\nHou net die elemente waarvoor die predikaat waar is.",

	"vou": "**vou** (funksie)\n\nVou 'n lys tot 'n enkele waarde (fold/reduce).\n\n```arkaan\nlaat som = vou([1, 2, 3], 0, fn(acc, x) acc + x)\n// Resultaat: 6\n```",

	"vir_elk": "**vir_elk** (funksie)\n\nRoep 'n funksie vir elke element; gee nil terug.",
}

// completionSnippet pairs a keyword with its insert-text template.
type completionSnippet struct {
	label  string
	detail string
	insert string
}

var keywordSnippets = []completionSnippet{
	{"laat", "Onveranderlike binding", "laat ${1:naam} = ${0:waarde}"},
	{"stel", "Veranderlike binding", "stel ${1:naam} = ${0:waarde}"},
	{"fn", "Anonieme funksie", "fn(${1:parameters}) ${0}"},
	{"gee", "Gee waarde terug", "gee ${0:waarde}"},
	{"gee as", "Voorwaardelike terugkeer (wag)", "gee ${1:waarde} as ${0:voorwaarde}"},
	{"gee as anders", "Ternêre terugkeer", "gee ${1:waarde1} as ${2:voorwaarde} anders ${0:waarde2}"},
	{"as", "Voorwaardelike stelling", "as ${1:voorwaarde} {\n\t${0}\n}"},
	{"anders", "Anders-tak", "anders {\n\t${0}\n}"},
	{"terwyl", "Herhaal terwyl voorwaarde waar is", "terwyl ${1:voorwaarde} {\n\t${0}\n}"},
	{"pas", "Patroon-passing", "pas(${1:waarde}) {\n\tgeval ${2:patroon} => ${0}\n}"},
	{"tipe", "Algebraïese datatipe", "tipe ${1:Naam} {\n\t${0:Konstruktor}\n}"},
	{"druk", "Druk na konsole", "druk(${0})"},
}
