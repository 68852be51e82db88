package risk

import "fmt"

// Message templates use plain, friendly wording because the people reading
// them are not technical. Titles are fixed; details are fmt templates filled
// with the subject-specific values at each call site.
type template struct {
	risk   Level
	title  string
	detail string
}

func (t template) finding(args ...interface{}) Finding {
	return Finding{Risk: t.risk, Title: t.title, Detail: fmt.Sprintf(t.detail, args...)}
}

var (
	msgDoubleExtension = template{Danger,
		"🛑 This file is trying to trick you!",
		"The file '%s' is pretending to be a '%s' file, but it's actually a program " +
			"that could run on your computer. This is a very common trick used by " +
			"scammers. Please do NOT open this file. If someone sent it to you, do not " +
			"reply — contact a family member or friend for help."}

	msgDangerousExtension = template{Danger,
		"🛑 This file could be dangerous",
		"The file '%s' is a type of program (ending in '%s'). Programs can make " +
			"changes to your computer — sometimes harmful ones. Unless you were " +
			"specifically expecting to install something, it's safest not to open this. " +
			"Ask a trusted person before continuing."}

	msgScriptExtension = template{Danger,
		"🛑 This is a script file — be careful",
		"The file '%s' is a script (ending in '%s'). Scripts are like mini-programs " +
			"and can change things on your computer. If you didn't ask for this, don't " +
			"open it. Ask someone you trust to take a look first."}

	msgSuspiciousNameDanger = template{Danger,
		"⚠️ This looks like it could be a scam file",
		"The file is named '%s' and uses the word '%s' — scammers often use " +
			"urgent-sounding words like this to trick people into opening dangerous " +
			"files. Be very cautious."}

	msgDocumentMacroRisk = template{Caution,
		"⚠️ This is a document — just double-check before opening",
		"The file '%s' looks like a normal document, which is usually fine. However, " +
			"documents can sometimes contain hidden programs called 'macros'. If your " +
			"computer asks you to 'Enable Macros' or 'Enable Content' after opening it " +
			"— say NO and close the file. When in doubt, ask a family member."}

	msgArchiveFile = template{Caution,
		"⚠️ This is a compressed archive — check what's inside",
		"The file '%s' is a compressed archive (like a folder of files). Archives " +
			"can contain anything, including dangerous programs. Don't open files " +
			"inside it unless you trust whoever sent it. Ask a family member if you're " +
			"unsure."}

	msgMediaOrSafe = template{Safe,
		"✅ This file looks safe",
		"The file '%s' appears to be a %s. This type of file is generally safe to " +
			"open. Still, only open files from people or websites you trust."}

	msgUnknownExtension = template{Caution,
		"⚠️ We're not sure about this file",
		"The file '%s' has an unusual type ('%s') that we don't recognise. It might " +
			"be perfectly fine, but if you weren't expecting it, it's worth asking " +
			"someone you trust before opening it."}

	msgEmptyFile = template{Caution,
		"⚠️ This file appears to be empty",
		"The file '%s' contains no data at all. An empty file is unusual and may " +
			"mean the download didn't finish properly, or that something went wrong. " +
			"You can safely delete it and try downloading again if you need it."}

	msgSuspiciousNameCaution = template{Caution,
		"⚠️ This file has an attention-grabbing name — double-check before opening",
		"The file is named '%s' and uses the word '%s'. Scammers often use urgent " +
			"or exciting words like this to trick people into opening files. If you " +
			"weren't expecting this file, it's worth asking someone you trust before " +
			"opening it."}

	msgReputationClean = template{Safe,
		"✅ Checked with security services — looks clean",
		"We checked this file against online security databases and no threats were " +
			"found. That's a good sign, though it's still best to only open files you " +
			"were expecting."}

	msgReputationDetected = template{Danger,
		"🛑 Security services flagged this file!",
		"We checked this file against online security databases and %d security " +
			"service(s) flagged it as potentially harmful. Do NOT open this file. " +
			"You should delete it and let a trusted person know."}
)

var (
	msgTrustedDomain = template{Safe,
		"✅ This looks like a well-known, trusted website",
		"The address '%s' appears to belong to a well-known and trusted website. " +
			"It should be safe to visit, but always make sure the spelling is exactly " +
			"right — scammers sometimes use addresses that look almost right (like " +
			"'arnazon.com' instead of 'amazon.com')."}

	msgScamKeywords = template{Danger,
		"🛑 This website looks suspicious",
		"The address '%s' contains words often used in scam or phishing websites. " +
			"We strongly suggest you do NOT visit this site. If a message or email " +
			"told you to go there, it could be a scam. Ask a family member or friend " +
			"for help."}

	msgNonHTTPS = template{Caution,
		"⚠️ This website may not be secure",
		"The address '%s' doesn't use a secure connection (it starts with 'http' " +
			"rather than 'https'). Avoid entering any personal details, passwords, or " +
			"payment information on this site."}

	msgLongOrOddURL = template{Caution,
		"⚠️ This web address looks unusual",
		"The address '%s' looks more complicated than normal websites. Legitimate " +
			"websites usually have short, simple addresses. Be cautious and check with " +
			"someone you trust before visiting."}

	msgSafeURL = template{Safe,
		"✅ This web address looks okay",
		"The address '%s' doesn't show obvious warning signs. It should be fine to " +
			"visit, but always be careful about entering personal information on any " +
			"website."}

	msgURLFlagged = template{Danger,
		"🛑 WARNING: This site has been reported as dangerous!",
		"The address '%s' has been flagged by online safety services as a harmful " +
			"or deceptive website. Do NOT visit this site. If someone sent you this " +
			"link, do not reply to them — it may be a scam."}

	msgLookalikeDomain = template{Danger,
		"🛑 This website is imitating a well-known site!",
		"The address '%s' looks very similar to '%s' but the spelling is slightly " +
			"different. This is a very common trick used by scammers to steal your " +
			"personal information. Do NOT visit this site or enter any details."}

	msgIPAddressURL = template{Caution,
		"⚠️ This web address uses a raw number instead of a name",
		"The address '%s' uses a numeric IP address instead of a normal website " +
			"name. Legitimate websites almost never ask you to visit an address like " +
			"this. This could be a trick. Unless you know exactly what this is, do not " +
			"visit it."}

	msgInvalidURL = template{Caution,
		"⚠️ We couldn't understand this web address",
		"The address '%s' doesn't look like a normal web address. Please " +
			"double-check it."}
)
