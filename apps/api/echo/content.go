package echoapi

type (
	Course struct {
		Name        string
		Description string
		Level       string
		Schedule    string
	}

	Highlight struct {
		Number      string
		Label       string
		Description string
	}

	Testimonial struct {
		Name       string
		Instrument string
		Quote      string
	}

	ContactInfo struct {
		Phones   []string
		Email    string
		Weekdays string
		Weekend  string
	}

	// SiteContent is the static marketing content of the home page.
	SiteContent struct {
		Tagline      string
		Intro        string
		Courses      []Course
		About        string
		Highlights   []Highlight
		Testimonials []Testimonial
		Contact      ContactInfo
	}
)

var siteContent = SiteContent{
	Tagline: "Music Speaks",
	Intro: "Discover the joy of music with expert instructors, flexible schedules " +
		"and lessons for every age and level.",
	Courses: []Course{
		{"Piano & Keyboard", "Master the keys with our comprehensive piano and keyboard lessons", "All Levels", "Mon-Fri: 7AM-7PM"},
		{"Guitar", "Learn acoustic and electric guitar from beginner to advanced", "All Levels", "Mon-Fri: 7AM-7PM"},
		{"Voice Training", "Develop your vocal skills with professional voice coaching", "All Levels", "Mon-Fri: 7AM-7PM"},
		{"Violin", "Classical and contemporary violin instruction", "All Levels", "Mon-Fri: 7AM-7PM"},
		{"Saxophone", "Jazz, classical, and contemporary saxophone lessons", "All Levels", "Mon-Fri: 7AM-7PM"},
		{"Trumpet & Flute", "Brass and wind instrument instruction", "All Levels", "Mon-Fri: 7AM-7PM"},
		{"Music Theory", "Comprehensive music theory and composition", "All Levels", "Mon-Fri: 7AM-7PM"},
		{"Weekend Classes", "Special weekend sessions for busy schedules", "All Levels", "Sun: From Noon"},
	},
	About: "We are a community of passionate musicians and teachers. Whether you are picking up " +
		"an instrument for the first time or preparing for a performance, our instructors guide " +
		"you step by step.",
	Highlights: []Highlight{
		{"500+", "Active Students", "Students of all ages learning music"},
		{"10+", "Instruments", "Wide variety of musical instruments"},
		{"15+", "Expert Instructors", "Professional and experienced teachers"},
		{"6", "Days a Week", "Flexible scheduling options"},
	},
	Testimonials: []Testimonial{
		{"Sarah K.", "Piano", "The instructors are amazing and patient. I now play the classical pieces I always dreamt of."},
		{"David M.", "Guitar", "As an adult learner I was nervous about starting. The flexible schedule made all the difference."},
		{"Grace W.", "Voice", "My voice coach helped me find my confidence. I now perform in school concerts."},
		{"John O.", "Saxophone", "The jazz saxophone lessons are incredible. I learned more in 6 months than I thought possible."},
		{"Mary A.", "Violin", "The step-by-step approach and supportive community helped me master this beautiful instrument."},
		{"Peter K.", "Music Theory", "Now I understand the why behind the music, not just the how."},
	},
	Contact: ContactInfo{
		Phones:   []string{"0701 195 460", "0735 211 627"},
		Email:    "hello@harmony-academy.test",
		Weekdays: "Mon - Fri, 7AM - 7PM",
		Weekend:  "Sun, from noon",
	},
}
