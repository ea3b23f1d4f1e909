package testsupport

// TitlesDump is a small AniDB anime-titles document.
const TitlesDump = `<?xml version="1.0" encoding="UTF-8"?>
<animetitles>
	<anime aid="1">
		<title xml:lang="x-jat" type="main">Seikai no Monshou</title>
		<title xml:lang="en" type="official">Crest of the Stars</title>
	</anime>
	<anime aid="23">
		<title xml:lang="x-jat" type="main">Cowboy Bebop</title>
		<title xml:lang="ja" type="official">カウボーイビバップ</title>
		<title xml:lang="en" type="official">Cowboy Bebop</title>
	</anime>
</animetitles>`

// AnimeDocument is an AniDB HTTP API anime document for series 23.
const AnimeDocument = `<?xml version="1.0" encoding="UTF-8"?>
<anime id="23" restricted="false">
	<type>TV Series</type>
	<episodecount>26</episodecount>
	<startdate>1998-04-03</startdate>
	<enddate>1999-04-24</enddate>
	<titles>
		<title xml:lang="x-jat" type="main">Cowboy Bebop</title>
		<title xml:lang="ja" type="official">カウボーイビバップ</title>
		<title xml:lang="en" type="official">Cowboy Bebop (EN)</title>
	</titles>
	<description>In 2071, the crew of the http://anidb.net/ch123 [Bebop] hunts bounties.
Source: ANN</description>
	<ratings>
		<permanent count="12000">8.84</permanent>
		<temporary count="12100">8.9</temporary>
	</ratings>
	<tags>
		<tag id="1" weight="300"><name>bounty hunters</name></tag>
		<tag id="2" weight="600"><name>science fiction</name></tag>
		<tag id="3" weight="400"><name>action</name></tag>
	</tags>
	<creators>
		<name id="10" type="Direction">Watanabe Shinichirou</name>
		<name id="11" type="Animation Work">Sunrise</name>
	</creators>
	<episodes>
		<episode id="100">
			<epno type="1">1</epno>
			<length>25</length>
			<airdate>1998-10-24</airdate>
			<rating votes="30">8.44</rating>
			<title xml:lang="en">Asteroid Blues</title>
			<title xml:lang="ja">アステロイド・ブルース</title>
			<summary>Spike and Jet chase a bounty.</summary>
		</episode>
		<episode id="101">
			<epno type="1">2</epno>
			<length>25</length>
			<airdate>1998-10-31</airdate>
			<title xml:lang="en">Stray Dog Strut</title>
		</episode>
		<episode id="102">
			<epno type="1">3</epno>
			<length>24</length>
			<title xml:lang="en">Honky Tonk Women</title>
		</episode>
		<episode id="200">
			<epno type="2">S1</epno>
			<length>5</length>
			<title xml:lang="en">Session XX</title>
		</episode>
		<episode id="300">
			<epno type="3">C1</epno>
			<title xml:lang="en">Opening</title>
		</episode>
	</episodes>
</anime>`

// AniDBError is the payload AniDB returns with HTTP 200 for a refused request.
const AniDBError = `<error code="500">banned</error>`
